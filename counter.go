package shuttle

import (
	"sync"
	"time"
)

// Counter is a mutex protected counter that remembers when it was last reset
type Counter struct {
	value        int
	allTimeValue int
	lastRAR      time.Time
	sync.Mutex
}

// NewCounter returns a new Counter, primed with the initial value
func NewCounter(initial int) *Counter {
	return &Counter{value: initial, allTimeValue: initial, lastRAR: time.Now()}
}

// Read the current value of the counter
func (c *Counter) Read() int {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	return c.value
}

// AllTime value of the counter
func (c *Counter) AllTime() int {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	return c.allTimeValue
}

// ReadAndReset returns the current value and the time of the previous reset,
// zeroing the counter
func (c *Counter) ReadAndReset() (int, time.Time) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	defer func() {
		c.value = 0
		c.lastRAR = time.Now()
	}()
	return c.value, c.lastRAR
}

// Add to the counter, returning the new value
func (c *Counter) Add(u int) int {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	c.allTimeValue += u
	c.value += u
	return c.value
}
