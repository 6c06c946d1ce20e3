// Package server runs the arena's front ends and background services as one
// process, starting them together and stopping them in reverse order.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultDrainTimeout bounds how long Run waits for Start calls to return
// once every service has been told to stop.
const DefaultDrainTimeout = 10 * time.Second

// Service is a long-running component such as a listener or a catalog watcher.
type Service interface {
	// Start blocks until the service is stopped or fails.
	Start() error
	// Stop asks the service to stop; Start must return soon after.
	Stop()
}

// FuncService turns a pair of closures into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start runs StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop runs StopFn.
func (f *FuncService) Stop() { f.StopFn() }

type entry struct {
	name string
	svc  Service
}

// Lifecycle owns the services of one arena process. The order of Add calls
// is the start order; shutdown walks it backwards so a service never outlives
// something registered before it.
type Lifecycle struct {
	logger *zap.Logger
	// DrainTimeout overrides DefaultDrainTimeout when positive.
	DrainTimeout time.Duration

	mu      sync.Mutex
	entries []entry
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger.Named("lifecycle")}
}

// Add registers svc under name.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
	l.mu.Unlock()
}

// Names returns the registered names in start order.
func (l *Lifecycle) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.name)
	}
	return out
}

// Run starts every service, then waits for SIGINT or SIGTERM, for ctx to be
// cancelled, or for a service to fail. Whichever comes first triggers a
// reverse-order stop.
//
// Postcondition: every Stop has been called. The error is the first service
// failure wrapped with its name, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	entries := append([]entry(nil), l.entries...)
	l.mu.Unlock()

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	began := time.Now()
	failures := make(chan error, len(entries))
	var running sync.WaitGroup
	for _, e := range entries {
		running.Add(1)
		go func() {
			defer running.Done()
			l.logger.Info("service starting", zap.String("service", e.name))
			if err := e.svc.Start(); err != nil {
				failures <- fmt.Errorf("service %s: %w", e.name, err)
			}
		}()
	}

	var failure error
	select {
	case failure = <-failures:
		l.logger.Error("service failed, shutting down", zap.Error(failure))
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	}

	for i := len(entries) - 1; i >= 0; i-- {
		t := time.Now()
		entries[i].svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", entries[i].name),
			zap.Duration("took", time.Since(t)),
		)
	}
	l.drain(&running)

	l.logger.Info("lifecycle finished", zap.Duration("uptime", time.Since(began)))
	return failure
}

// drain waits for outstanding Start calls, giving up after the drain timeout.
func (l *Lifecycle) drain(running *sync.WaitGroup) {
	timeout := l.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	done := make(chan struct{})
	go func() {
		running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		l.logger.Warn("services still running after stop", zap.Duration("waited", timeout))
	}
}
