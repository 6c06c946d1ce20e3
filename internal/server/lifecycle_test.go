package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type blockingService struct {
	started atomic.Bool
	stopCh  chan struct{}
	once    sync.Once
	onStop  func()
}

func newBlockingService(onStop func()) *blockingService {
	return &blockingService{stopCh: make(chan struct{}), onStop: onStop}
}

func (b *blockingService) Start() error {
	b.started.Store(true)
	<-b.stopCh
	return nil
}

func (b *blockingService) Stop() {
	b.once.Do(func() {
		if b.onStop != nil {
			b.onStop()
		}
		close(b.stopCh)
	})
}

func waitStarted(t *testing.T, svcs ...*blockingService) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, s := range svcs {
			if !s.started.Load() {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLifecycle_StopsInReverseOrder(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}
	telnet := newBlockingService(record("telnet"))
	web := newBlockingService(record("web"))
	lc.Add("telnet", telnet)
	lc.Add("web", web)
	assert.Equal(t, []string{"telnet", "web"}, lc.Names())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	waitStarted(t, telnet, web)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.Equal(t, []string{"web", "telnet"}, order)
}

func TestLifecycle_ServiceFailureStopsOthers(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	healthy := newBlockingService(nil)
	boom := errors.New("bind: address in use")

	lc.Add("healthy", healthy)
	lc.Add("broken", &FuncService{
		StartFn: func() error { return boom },
		StopFn:  func() {},
	})

	err := lc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")

	select {
	case <-healthy.stopCh:
	default:
		t.Fatal("healthy service was not stopped")
	}
}

func TestFuncService(t *testing.T) {
	started := false
	stopped := false

	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() { stopped = true },
	}

	assert.NoError(t, svc.Start())
	assert.True(t, started)
	svc.Stop()
	assert.True(t, stopped)
}

type stuckService struct{ release chan struct{} }

func (s *stuckService) Start() error { <-s.release; return nil }
func (s *stuckService) Stop()        {}

func TestLifecycle_DrainGivesUpOnStuckService(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	lc.DrainTimeout = 50 * time.Millisecond
	stuck := &stuckService{release: make(chan struct{})}
	defer close(stuck.release)
	lc.Add("stuck", stuck)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	begin := time.Now()
	require.NoError(t, lc.Run(ctx))
	assert.Less(t, time.Since(begin), 2*time.Second)
}
