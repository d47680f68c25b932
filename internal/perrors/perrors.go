// Package perrors provides a concurrent error collector, adapted from
// the teacher's util/perror.go. The IR emitter's parallel global/
// function-header pass (spec.md §4.5) spawns one goroutine per shard;
// each reports failures back through a single Collector instead of
// returning an error directly, since a goroutine's return value is
// otherwise lost.
package perrors

import "sync"

// defaultBufferSize is the fallback capacity when the caller has no
// estimate of how many errors to expect.
const defaultBufferSize = 16

// Collector listens for errors sent by worker goroutines and buffers
// them for retrieval once the parallel job completes.
type Collector struct {
	listen chan error
	stop   chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	errors []error
}

// NewCollector returns a running Collector with room for n buffered
// errors (a non-positive n falls back to defaultBufferSize).
func NewCollector(n int) *Collector {
	if n < 1 {
		n = defaultBufferSize
	}
	c := &Collector{
		listen: make(chan error),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		errors: make([]error, 0, n),
	}
	go c.run()
	return c
}

func (c *Collector) run() {
	defer close(c.done)
	for {
		select {
		case err := <-c.listen:
			c.mu.Lock()
			c.errors = append(c.errors, err)
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Append sends err to the collector. A nil err is ignored. Must not be
// called after Stop.
func (c *Collector) Append(err error) {
	if err == nil {
		return
	}
	c.listen <- err
}

// Len returns the number of errors buffered so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Errors returns a snapshot of every error collected so far.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errors))
	copy(out, c.errors)
	return out
}

// Stop halts the listener goroutine and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stop)
	<-c.done
}
