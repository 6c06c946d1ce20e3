package testutil

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cory-johannsen/arena/internal/frontend/telnet"
)

// TelnetClient drives an arena Telnet session from a test. A background
// goroutine drains the connection so server writes never block on the client,
// which matters on an unbuffered net.Pipe.
type TelnetClient struct {
	conn net.Conn
	t    testing.TB

	mu sync.Mutex
	// seen accumulates unstyled output not yet consumed by ReadUntil.
	seen    strings.Builder
	readErr error
	// arrived is signalled after every read.
	arrived chan struct{}
}

// NewTelnetClient dials addr.
//
// Precondition: addr must be a listening "host:port".
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t testing.TB, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	return NewTelnetClientConn(t, conn)
}

// NewTelnetClientConn wraps the client side of an existing connection, such
// as one end of net.Pipe.
func NewTelnetClientConn(t testing.TB, conn net.Conn) *TelnetClient {
	t.Helper()
	c := &TelnetClient{conn: conn, t: t, arrived: make(chan struct{}, 1)}
	go c.drain()
	t.Cleanup(func() { _ = conn.Close() })
	return c
}

func (c *TelnetClient) drain() {
	var cmd commandFilter
	buf := make([]byte, 1024)
	for {
		n, err := c.conn.Read(buf)
		c.mu.Lock()
		if n > 0 {
			c.seen.WriteString(telnet.StripANSI(cmd.filter(buf[:n])))
		}
		if err != nil {
			c.readErr = err
		}
		c.mu.Unlock()
		select {
		case c.arrived <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

// ReadUntil waits until substr appears in the output with ANSI styling and
// telnet commands removed, and returns everything read up to and including it.
// Output after the match is kept for the next call.
//
// Precondition: substr must be non-empty.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		c.mu.Lock()
		out, ok := c.take(substr)
		seen, err := c.seen.String(), c.readErr
		c.mu.Unlock()
		if ok {
			return out
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, seen, err)
		}
		select {
		case <-c.arrived:
		case <-deadline.C:
			c.t.Fatalf("reading until %q: timed out after %s with %q", substr, timeout, seen)
		}
	}
}

// take must be called with mu held.
func (c *TelnetClient) take(substr string) (string, bool) {
	s := c.seen.String()
	i := strings.Index(s, substr)
	if i < 0 {
		return "", false
	}
	end := i + len(substr)
	c.seen.Reset()
	c.seen.WriteString(s[end:])
	return s[:end], true
}

// commandFilter drops three-byte IAC option commands, including ones split
// across reads.
type commandFilter struct{ skip int }

func (f *commandFilter) filter(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, x := range b {
		switch {
		case f.skip > 0:
			f.skip--
		case x == telnet.IAC:
			f.skip = 2
		default:
			out = append(out, x)
		}
	}
	return string(out)
}

// Send writes text followed by CRLF.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}
