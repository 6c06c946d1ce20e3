package combat_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

func newEngine(t *testing.T) *combat.Engine {
	t.Helper()
	return combat.NewEngine(combat.EngineConfig{
		Rules:        testRules(),
		TickInterval: 2 * time.Millisecond,
		Source:       fixedSrc{},
		Logger:       zaptest.NewLogger(t),
	})
}

func TestEngine_StartGetEnd(t *testing.T) {
	e := newEngine(t)
	s, err := e.Start(hero(100, 0), []combat.Participant{enemy("e1", 50)}, combat.StartOptions{Owner: "alice"})
	require.NoError(t, err)

	_, parseErr := uuid.Parse(s.ID())
	assert.NoError(t, parseErr)
	assert.Equal(t, "alice", s.Owner())
	assert.Equal(t, 1, e.Len())

	got, err := e.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, e.End(s.ID()))
	assert.Equal(t, 0, e.Len())
	_, err = e.Get(s.ID())
	assert.ErrorIs(t, err, combat.ErrSessionNotFound)
	assert.ErrorIs(t, e.End(s.ID()), combat.ErrSessionNotFound)

	o, ok := s.Outcome()
	require.True(t, ok)
	assert.True(t, o.Stats.Fled)
}

func TestEngine_StartRejectsInvalidBattle(t *testing.T) {
	e := newEngine(t)
	_, err := e.Start(hero(100, 0), nil, combat.StartOptions{})
	assert.Error(t, err)
	assert.Equal(t, 0, e.Len())
}

func TestEngine_OutcomeHooksFire(t *testing.T) {
	e := newEngine(t)
	var mu sync.Mutex
	var outcomes []combat.Outcome
	e.OnOutcome(func(_ *combat.Session, o combat.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, o)
	})

	s, err := e.Start(hero(100, 100, bolt(60, 0, 0)), []combat.Participant{enemy("e1", 50)}, combat.StartOptions{})
	require.NoError(t, err)
	require.NoError(t, s.UseAbility(s.HeroID(), 0, "e1"))

	mu.Lock()
	require.Len(t, outcomes, 1)
	assert.Equal(t, combat.PhaseVictory, outcomes[0].Phase)
	mu.Unlock()

	// ending an already decided battle does not report it again
	require.NoError(t, e.End(s.ID()))
	mu.Lock()
	assert.Len(t, outcomes, 1)
	mu.Unlock()
}

func TestEngine_RealtimeSessionsAreDriven(t *testing.T) {
	e := newEngine(t)
	s, err := e.Start(hero(100, 0), []combat.Participant{enemy("e1", 50)}, combat.StartOptions{Realtime: true})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Snapshot().Tick >= 3 }, time.Second, time.Millisecond)

	e.StopAll()
	assert.Equal(t, 0, e.Len())
	tick := s.Snapshot().Tick
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, tick, s.Snapshot().Tick)
}

func TestEngine_HeldSessionWaitsForDrive(t *testing.T) {
	e := newEngine(t)
	s, err := e.Start(hero(100, 0), []combat.Participant{enemy("e1", 50)}, combat.StartOptions{Realtime: true, Hold: true})
	require.NoError(t, err)
	assert.True(t, s.Realtime())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, s.Snapshot().Tick)

	require.NoError(t, e.Drive(s.ID()))
	require.Eventually(t, func() bool { return s.Snapshot().Tick >= 2 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, e.Drive("missing"), combat.ErrSessionNotFound)
	e.StopAll()
}

func TestEngine_ConcurrentStarts(t *testing.T) {
	e := newEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Start(hero(100, 0), []combat.Participant{enemy("e1", 50)}, combat.StartOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, e.Len())
	e.StopAll()
	assert.Equal(t, 0, e.Len())
}
