package combat

import (
	"sync"
	"time"
)

// Driver advances one session in real time, one Advance(1) per interval.
//
// Invariant: at most one ticker goroutine runs per Driver.
type Driver struct {
	session  *Session
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

// NewDriver returns a stopped driver for s.
//
// Precondition: s must be non-nil; interval must be > 0.
func NewDriver(s *Session, interval time.Duration) *Driver {
	if interval <= 0 {
		panic("combat.NewDriver: interval must be > 0")
	}
	return &Driver{
		session:  s,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine. Calling Start more than once has no effect.
//
// Postcondition: the goroutine exits when the battle ends or Stop is called.
func (d *Driver) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

func (d *Driver) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.session.Advance(1)
			if d.session.Phase().Terminal() {
				return
			}
		}
	}
}

// Stop halts the driver and waits for its goroutine. Safe to call multiple
// times, and before Start.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	// never started: there is no goroutine to close done
	d.startOnce.Do(func() { close(d.done) })
	<-d.done
}

// Done is closed once the driver goroutine has exited.
func (d *Driver) Done() <-chan struct{} { return d.done }
