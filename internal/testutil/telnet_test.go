package testutil

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/frontend/telnet"
)

func TestTelnetClient_ServerPromptAfterMatchDoesNotBlock(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	got := make(chan string, 1)
	go func() {
		_, _ = server.Write([]byte{telnet.IAC, telnet.WILL, telnet.OptSuppressGoAhead})
		_, _ = server.Write([]byte("Welcome!\r\n"))
		_, _ = server.Write([]byte("> "))
		line, _ := bufio.NewReader(server).ReadString('\n')
		got <- line
		_, _ = server.Write([]byte("bye\r\n> "))
	}()

	c := NewTelnetClientConn(t, client)
	assert.Equal(t, "Welcome!", c.ReadUntil("Welcome!", time.Second))
	c.Send("hello")
	select {
	case line := <-got:
		assert.Equal(t, "hello\r\n", line)
	case <-time.After(time.Second):
		t.Fatal("server never received the line")
	}
	out := c.ReadUntil("bye", time.Second)
	assert.Contains(t, out, "> ")
}

func TestCommandFilter_SplitAcrossReads(t *testing.T) {
	var f commandFilter
	require.Equal(t, "a", f.filter([]byte{'a', telnet.IAC, telnet.WILL}))
	assert.Equal(t, "cd", f.filter([]byte{telnet.OptEcho, 'c', 'd'}))
}
