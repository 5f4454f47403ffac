package shuttle

import "sync"

// Outlet is the interface delivery targets need to support. Outlet() drains
// the shuttle's event channel until it is closed, encoding and delivering
// every event it receives.
type Outlet interface {
	Outlet()
}

// NewOutletFunc defines the function type for creating and returning a new
// Outlet bound to a shuttle. Endpoint specific setup (resolution, AWS client
// construction) happens before one of these is made, so building the outlet
// itself cannot fail.
type NewOutletFunc func(s *Shuttle) Outlet

// startOutlets launches config.NumOutlets number of outlets and returns a
// waitgroup you can wait on. When the shuttle's event channel is closed the
// outlets will finish up their output and exit.
func startOutlets(s *Shuttle) *sync.WaitGroup {
	outletWaiter := new(sync.WaitGroup)

	for i := 0; i < s.config.NumOutlets; i++ {
		outletWaiter.Add(1)
		go func() {
			defer outletWaiter.Done()
			outlet := s.config.OutletFunc(s)
			outlet.Outlet()
		}()
	}

	return outletWaiter
}
