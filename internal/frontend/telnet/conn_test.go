package telnet

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func pipe(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return NewConn(server, 0, time.Second), client
}

func send(t *testing.T, w io.Writer, data []byte) {
	t.Helper()
	go func() { _, _ = w.Write(data) }()
}

func TestReadLine_StripsCommands(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
		want  string
	}{
		{"plain crlf", []byte("attack\r\n"), "attack"},
		{"bare lf", []byte("flee\n"), "flee"},
		{"cr nul", []byte{'u', 's', 'e', ' ', '1', '\r', 0}, "use 1"},
		{"will echo", []byte{IAC, WILL, OptEcho, 'h', 'i', '\n'}, "hi"},
		{"do sga", []byte{'a', IAC, DO, OptSuppressGoAhead, 'b', '\n'}, "ab"},
		{"subnegotiation", []byte{IAC, SB, 24, 0, 'x', 't', IAC, SE, 'z', '\n'}, "z"},
		{"nop", []byte{'x', IAC, NOP, 'y', '\n'}, "xy"},
		{"control chars", []byte{'t', 0x07, 'a', '\t', 'b', '\n'}, "ta\tb"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, client := pipe(t)
			send(t, client, tc.input)
			got, err := conn.ReadLine()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReadLine_IdleTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	conn := NewConn(server, 20*time.Millisecond, 0)
	defer conn.Close()
	_, err := conn.ReadLine()
	require.Error(t, err)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}

func TestWriteScreen_TranslatesNewlines(t *testing.T) {
	conn, client := pipe(t)
	go func() { _ = conn.WriteScreen("a\nb\r\nc") }()
	buf := make([]byte, 64)
	n, err := io.ReadAtLeast(client, buf, len(ClearScreen)+7)
	require.NoError(t, err)
	assert.Equal(t, ClearScreen+"a\r\nb\r\nc", string(buf[:n]))
}

func TestReadPassword_TogglesEcho(t *testing.T) {
	conn, client := pipe(t)
	done := make(chan string, 1)
	go func() {
		pw, _ := conn.ReadPassword()
		done <- pw
	}()

	r := bufio.NewReader(client)
	head := make([]byte, 3)
	_, err := io.ReadFull(r, head)
	require.NoError(t, err)
	assert.Equal(t, []byte{IAC, WILL, OptEcho}, head)

	send(t, client, []byte("secret\r\n"))
	tail := make([]byte, 5)
	_, err = io.ReadFull(r, tail)
	require.NoError(t, err)
	assert.Equal(t, []byte{IAC, WONT, OptEcho, '\r', '\n'}, tail)
	assert.Equal(t, "secret", <-done)
}

func TestLines_StopsOnEOF(t *testing.T) {
	conn, client := pipe(t)
	lines, errs := conn.Lines(context.Background())
	go func() {
		_, _ = client.Write([]byte("one\r\ntwo\r\n"))
		_ = client.Close()
	}()
	var got []string
	for l := range lines {
		got = append(got, l)
	}
	assert.Equal(t, []string{"one", "two"}, got)
	assert.ErrorIs(t, <-errs, io.EOF)
}

// Property: text without telnet or control bytes is read back unchanged.
func TestPropertyReadLine_PlainTextRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[ -~]{0,80}`).Draw(rt, "text")
		server, client := net.Pipe()
		defer server.Close()
		defer client.Close()
		conn := NewConn(server, time.Second, 0)
		go func() { _, _ = client.Write([]byte(text + "\r\n")) }()
		got, err := conn.ReadLine()
		if err != nil {
			rt.Fatalf("ReadLine: %v", err)
		}
		if got != strings.TrimRight(text, "\r\n") {
			rt.Fatalf("got %q, want %q", got, text)
		}
	})
}
