package handlers

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/frontend/telnet"
	"github.com/cory-johannsen/arena/internal/testutil"
)

const wait = 3 * time.Second

func serve(t *testing.T) (*testutil.TelnetClient, *testutil.ArenaFixture, chan error) {
	t.Helper()
	f := testutil.NewArenaService(t, time.Minute)
	h := New(f.Service, 5*time.Millisecond, zaptest.NewLogger(t))

	server, client := net.Pipe()
	conn := telnet.NewConn(server, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.Serve(ctx, conn)
		_ = conn.Close()
	}()
	t.Cleanup(cancel)
	c := testutil.NewTelnetClientConn(t, client)
	c.ReadUntil("to disconnect.", wait)
	return c, f, done
}

func login(t *testing.T, c *testutil.TelnetClient) {
	t.Helper()
	c.Send("register ayla hunter22")
	c.ReadUntil("Account created: ayla", wait)
	c.Send("login ayla hunter22")
	c.ReadUntil("Welcome back, ayla!", wait)
	c.ReadUntil("4) Quit", wait)
}

func TestHandler_QuitBeforeLogin(t *testing.T) {
	c, _, done := serve(t)
	c.Send("bogus")
	c.ReadUntil("Unknown command: bogus", wait)
	c.Send("quit")
	c.ReadUntil("Goodbye!", wait)
	require.NoError(t, <-done)
}

func TestHandler_LoginErrors(t *testing.T) {
	c, _, _ := serve(t)
	c.Send("login ghost hunter22")
	c.ReadUntil("Account not found", wait)
	c.Send("register ab hunter22")
	c.ReadUntil("username must be", wait)
	c.Send("register ayla hunter22")
	c.ReadUntil("Account created", wait)
	c.Send("register ayla hunter22")
	c.ReadUntil("already taken", wait)
	c.Send("login ayla wrong-password")
	c.ReadUntil("Invalid password.", wait)
}

func TestHandler_PasswordPrompt(t *testing.T) {
	c, _, _ := serve(t)
	c.Send("register ayla hunter22")
	c.ReadUntil("Account created", wait)
	c.Send("login ayla")
	c.ReadUntil("Password: ", wait)
	c.Send("hunter22")
	c.ReadUntil("Welcome back, ayla!", wait)
}

func TestHandler_FightToVictoryAndLeaderboard(t *testing.T) {
	c, f, done := serve(t)
	login(t, c)

	c.Send("1")
	c.ReadUntil("Choose your hero", wait)
	c.Send("1")
	c.ReadUntil("Choose an encounter", wait)
	c.Send("duel")
	c.ReadUntil("Training Dummy", wait)

	c.Send("attack")
	c.ReadUntil("Select a target first", wait)
	c.Send("use 1 1")
	c.ReadUntil("VICTORY!", wait)
	c.ReadUntil("Rating:           Excellent", wait)

	c.Send("m")
	c.ReadUntil("4) Quit", wait)
	c.Send("2")
	c.ReadUntil("Leaderboard", wait)
	c.ReadUntil("ayla", wait)
	c.Send("")
	c.ReadUntil("4) Quit", wait)
	c.Send("4")
	c.ReadUntil("Goodbye!", wait)
	require.NoError(t, <-done)

	assert.Eventually(t, func() bool { return f.Engine.Len() == 0 }, wait, 5*time.Millisecond)
}

func TestHandler_FleeThenPlayAgain(t *testing.T) {
	c, f, _ := serve(t)
	login(t, c)

	c.Send("fight")
	c.ReadUntil("Choose your hero", wait)
	c.Send("tester")
	c.ReadUntil("Choose an encounter", wait)
	c.Send("2")
	c.ReadUntil("Training Dummy", wait)
	c.Send("f")
	c.ReadUntil("YOU FLED. DEFEAT", wait)

	c.Send("a")
	c.ReadUntil("Training Dummy", wait)
	c.Send("flee")
	c.ReadUntil("YOU FLED. DEFEAT", wait)
	c.Send("m")
	c.ReadUntil("4) Quit", wait)
	c.Send("3")
	c.ReadUntil("Recent battles", wait)

	reports, err := f.Service.History(context.Background(), "ayla", 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.True(t, reports[0].Fled)
}
