package shuttle

import (
	"io"
	"log"
	"os"
	"sync"

	metrics "github.com/rcrowley/go-metrics"
)

// Shuttle is the main entry point into the library
type Shuttle struct {
	config          Config
	Events          chan *LogEvent
	Drops           *Counter
	Lost            *Counter
	MetricsRegistry metrics.Registry
	Logger          *log.Logger
	ErrLogger       *log.Logger

	encoder *SyslogEncoder
	oWaiter *sync.WaitGroup
}

// NewShuttle returns a properly constructed Shuttle with a given config. The
// process id and encoding policy are captured here, once, and shared
// read-only by every outlet worker. Configuration errors (an unresolvable
// endpoint, conflicting filter lists) surface here and are fatal to this
// shuttle's startup only.
func NewShuttle(config Config) (*Shuttle, error) {
	if err := config.Encoding.Validate(); err != nil {
		return nil, err
	}

	s := &Shuttle{
		config:          config,
		Events:          make(chan *LogEvent, config.FrontBuff),
		Drops:           NewCounter(0),
		Lost:            NewCounter(0),
		MetricsRegistry: metrics.NewRegistry(),
		Logger:          Logger,
		ErrLogger:       ErrLogger,
	}
	s.encoder = NewSyslogEncoder(os.Getpid(), &s.config.Encoding)

	if s.config.OutletFunc == nil {
		of, err := NewTCPOutletFunc(config.Endpoint, config.TLS)
		if err != nil {
			return nil, err
		}
		s.config.OutletFunc = of
	}

	return s, nil
}

// Launch a shuttle by spawning its outlets.
func (s *Shuttle) Launch() {
	s.oWaiter = startOutlets(s)
}

// ReadLogLines reads lines from the input into the shuttle's event channel.
// Blocks until the input is closed.
func (s *Shuttle) ReadLogLines(input io.ReadCloser) {
	reader := NewReader(s.Events, s.config.InputFormat, s.Drops, s.MetricsRegistry)
	reader.Read(input)
}

// Land gracefully terminates the shuttle instance, ensuring that anything
// read is delivered before the outlets exit.
func (s *Shuttle) Land() {
	close(s.Events) // Close the event channel, all of the outlets will stop once they are done
	s.oWaiter.Wait()
}
