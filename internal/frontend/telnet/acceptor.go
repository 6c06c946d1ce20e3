package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
)

// Handler runs the screens for one connected player.
type Handler interface {
	// Serve returns when the player quits, the connection fails, or ctx ends.
	Serve(ctx context.Context, conn *Conn) error
}

// Acceptor listens for Telnet connections and hands each to a Handler. It
// satisfies server.Service.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler Handler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
	stopped  bool
}

// NewAcceptor creates an acceptor for cfg.Addr().
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler Handler, logger *zap.Logger) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[*Conn]struct{}),
	}
}

// Listen binds the listener without accepting yet, so callers can read Addr.
func (a *Acceptor) Listen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	a.listener = ln
	return nil
}

// Start listens, if Listen was not called, and accepts until Stop.
//
// Postcondition: Returns nil after Stop, or the listen error.
func (a *Acceptor) Start() error {
	if err := a.Listen(); err != nil {
		return err
	}
	a.mu.Lock()
	ln := a.listener
	a.mu.Unlock()
	a.logger.Info("telnet acceptor listening", zap.String("addr", ln.Addr().String()))

	for {
		raw, err := ln.Accept()
		if err != nil {
			if a.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}
		conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
		if !a.track(conn) {
			_ = conn.Close()
			return nil
		}
		a.wg.Add(1)
		go a.serve(conn)
	}
}

func (a *Acceptor) track(conn *Conn) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}
	a.conns[conn] = struct{}{}
	return true
}

func (a *Acceptor) serve(conn *Conn) {
	defer a.wg.Done()
	defer func() {
		a.mu.Lock()
		delete(a.conns, conn)
		a.mu.Unlock()
		_ = conn.Close()
	}()

	start := time.Now()
	addr := conn.RemoteAddr().String()
	a.logger.Info("client connected", zap.String("remote_addr", addr))

	if err := conn.Negotiate(); err != nil {
		a.logger.Warn("telnet negotiation failed", zap.String("remote_addr", addr), zap.Error(err))
		return
	}
	if err := a.handler.Serve(a.ctx, conn); err != nil {
		a.logger.Debug("session ended",
			zap.String("remote_addr", addr),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	a.logger.Info("session ended cleanly",
		zap.String("remote_addr", addr),
		zap.Duration("duration", time.Since(start)),
	)
}

// Stop closes the listener and every open connection, then waits for the
// handlers to return. Stop is idempotent.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.cancel()
	if a.listener != nil {
		_ = a.listener.Close()
	}
	for c := range a.conns {
		_ = c.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("telnet acceptor stopped")
}

// Addr returns the bound address, or "" before Listen.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Active returns the number of connected clients.
func (a *Acceptor) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}
