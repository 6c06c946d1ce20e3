package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

type zeroSrc struct{}

func (zeroSrc) Intn(int) int { return 0 }

func wipeSession(t *testing.T) *Session {
	t.Helper()
	logger := zaptest.NewLogger(t)
	p := func(id string, hp int) Participant {
		return Participant{ID: id, Name: id, Health: hp, MaxHealth: hp, BasicAttack: dice.MustParse("1d4")}
	}
	s, err := NewSession(SessionConfig{
		ID:      "wipe",
		Hero:    p("hero", 10),
		Enemies: []Participant{p("e1", 10)},
		Rules:   DefaultRules(),
		Roller:  dice.NewLoggedRoller(zeroSrc{}, logger),
		Logger:  logger,
	})
	require.NoError(t, err)
	return s
}

func TestCheckOutcome_SimultaneousWipeIsDefeat(t *testing.T) {
	s := wipeSession(t)
	s.mu.Lock()
	s.hero.Health = 0
	s.enemies[0].Health = 0
	s.mu.Unlock()

	assert.Equal(t, PhaseDefeat, s.CheckOutcome())
	assert.Equal(t, PhaseDefeat, s.CheckOutcome())
}

func TestCheckOutcome_OngoingWhileBothSidesStand(t *testing.T) {
	s := wipeSession(t)
	assert.Equal(t, PhaseOngoing, s.CheckOutcome())
}

func TestAssertInvariants_PanicsOnCorruption(t *testing.T) {
	s := wipeSession(t)
	s.mu.Lock()
	s.hero.Health = s.hero.MaxHealth + 1
	s.mu.Unlock()
	assert.Panics(t, func() { s.Tick() })
}

func TestEndHook_RunsOnceOutsideLock(t *testing.T) {
	s := wipeSession(t)
	calls := 0
	s.onEnd = func(sess *Session, o Outcome) {
		calls++
		// re-entering the session must not deadlock
		assert.Equal(t, PhaseDefeat, sess.Phase())
		assert.True(t, o.Stats.Fled)
	}
	require.NoError(t, s.Flee())
	s.Tick()
	assert.Equal(t, 1, calls)
}

func TestEventLog_Tail(t *testing.T) {
	l := newEventLog(5)
	for i := 0; i < 8; i++ {
		l.append(Event{Text: "x"})
	}
	tail := l.tail(5)
	require.Len(t, tail, 5)
	assert.Equal(t, uint64(4), tail[0].Seq)
	assert.Nil(t, l.since(8))
	assert.Len(t, l.since(0), 5)
}
