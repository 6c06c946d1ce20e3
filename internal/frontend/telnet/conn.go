package telnet

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// Telnet command and option bytes (RFC 854, RFC 857, RFC 858).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240
	NOP  byte = 241
	GA   byte = 249

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
)

// Conn is one Telnet client. Reads strip protocol commands and return whole
// lines; writes are serialised so a battle renderer and a prompt never
// interleave.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	// idleTimeout bounds how long ReadLine waits for input; 0 waits forever.
	idleTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps raw.
//
// Precondition: raw must be a valid, open network connection.
func NewConn(raw net.Conn, idleTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		idleTimeout:  idleTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate asks the client to suppress go-ahead.
func (c *Conn) Negotiate() error {
	return c.writeRaw([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine reads one line of input without its line terminator. Telnet
// commands and control characters other than tab are dropped.
//
// Postcondition: Returns the next line, or an error (including io.EOF).
func (c *Conn) ReadLine() (string, error) {
	if c.idleTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.idleTimeout))
	}

	var line bytes.Buffer
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line.String(), err
		}
		switch {
		case b == IAC:
			if err := c.skipCommand(); err != nil {
				return line.String(), err
			}
		case b == '\n':
			return line.String(), nil
		case b == '\r':
			if next, err := c.reader.Peek(1); err == nil && (next[0] == '\n' || next[0] == 0) {
				_, _ = c.reader.ReadByte()
			}
			return line.String(), nil
		case b < 32 && b != '\t':
		default:
			line.WriteByte(b)
		}
	}
}

// skipCommand consumes the rest of a command after its IAC byte.
func (c *Conn) skipCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case WILL, WONT, DO, DONT:
		_, err = c.reader.ReadByte()
		return err
	case SB:
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if b != IAC {
				continue
			}
			next, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if next == SE {
				return nil
			}
		}
	}
	return nil
}

// ReadPassword reads a line while the client's local echo is off.
//
// Postcondition: echo is restored even when the read fails.
func (c *Conn) ReadPassword() (string, error) {
	if err := c.writeRaw([]byte{IAC, WILL, OptEcho}); err != nil {
		return "", err
	}
	line, err := c.ReadLine()
	_ = c.writeRaw([]byte{IAC, WONT, OptEcho})
	_ = c.writeRaw([]byte("\r\n"))
	return line, err
}

// Lines pumps input lines into a channel until ctx ends or the read fails.
// The error channel receives the read error, if any, and both channels are
// closed when the pump stops.
func (c *Conn) Lines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(lines)
		for {
			line, err := c.ReadLine()
			if err != nil {
				errs <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines, errs
}

// WriteLine sends text followed by CRLF.
func (c *Conn) WriteLine(text string) error {
	return c.writeRaw([]byte(text + "\r\n"))
}

// WritePrompt sends text without a line terminator.
func (c *Conn) WritePrompt(prompt string) error {
	return c.writeRaw([]byte(prompt))
}

// WriteScreen clears the terminal and draws text, translating bare LF to CRLF.
func (c *Conn) WriteScreen(text string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return c.writeRaw([]byte(ClearScreen + strings.ReplaceAll(text, "\n", "\r\n")))
}

func (c *Conn) writeRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the client's address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
