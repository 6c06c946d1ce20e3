package arena_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/storage"
	"github.com/cory-johannsen/arena/internal/testutil"
)

func TestRulesFromConfig_DefaultsAreValid(t *testing.T) {
	cfg, err := config.LoadFromViper(config.Defaults())
	require.NoError(t, err)
	rules := arena.RulesFromConfig(cfg.Combat)
	require.NoError(t, rules.Validate())
	assert.Equal(t, combat.DefaultRules(), rules)
}

func TestService_RegisterAndLogin(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	ctx := context.Background()

	_, err := f.Service.Register(ctx, "ayla", "hunter22")
	require.NoError(t, err)
	_, err = f.Service.Register(ctx, "ayla", "hunter22")
	assert.ErrorIs(t, err, storage.ErrAccountExists)

	acct, err := f.Service.Login(ctx, " ayla ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ayla", acct.Username)

	_, err = f.Service.Login(ctx, "ayla", "nope")
	assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
}

func TestService_RegisterValidation(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	cases := []struct {
		user, pass string
		want       error
	}{
		{"ab", "hunter22", arena.ErrInvalidUsername},
		{"has space", "hunter22", arena.ErrInvalidUsername},
		{"ayla", "short", arena.ErrInvalidPassword},
	}
	for _, tc := range cases {
		_, err := f.Service.Register(context.Background(), tc.user, tc.pass)
		assert.ErrorIs(t, err, tc.want, "%q/%q", tc.user, tc.pass)
	}
}

func TestService_StartBattleUnknownIDs(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	_, err := f.Service.StartBattle("ayla", "nobody", "duel", false)
	assert.ErrorIs(t, err, catalog.ErrHeroNotFound)
	_, err = f.Service.StartBattle("ayla", "tester", "nowhere", false)
	assert.ErrorIs(t, err, catalog.ErrEncounterNotFound)
}

func TestService_VictoryIsRecorded(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	sess, err := f.Service.StartBattle("ayla", "tester", "duel", false)
	require.NoError(t, err)

	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAbility, Ability: 0, Target: "dummy-1"}))
	assert.Equal(t, combat.PhaseVictory, sess.Phase())

	reports, err := f.Service.History(context.Background(), "ayla", 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, sess.ID(), r.SessionID)
	assert.True(t, r.Victory)
	assert.Equal(t, "Test Hero", r.Hero)
	assert.Equal(t, "duel", r.Encounter)
	assert.Equal(t, 1, r.EnemiesDefeated)
	assert.Equal(t, "Excellent", r.Rating)

	board, err := f.Service.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []storage.Standing{{Owner: "ayla", Victories: 1, EnemiesDefeated: 1}}, board)
}

func TestService_CriticalHitsAreRecorded(t *testing.T) {
	rules := testutil.ArenaRules()
	rules.CritChance, rules.CritMultiplier = 100, 2
	f := testutil.NewArenaServiceWith(t, testutil.ArenaOptions{Retention: time.Minute, Rules: &rules})
	sess, err := f.Service.StartBattle("ayla", "tester", "pair", false)
	require.NoError(t, err)

	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAttack, Target: "dummy-1"}))
	assert.Equal(t, 8, sess.Snapshot().Enemies[0].Health)
	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAbility, Ability: 0, Target: "dummy-2"}))
	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionTick, Ticks: 2}))
	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAbility, Ability: 0, Target: "dummy-1"}))
	assert.Equal(t, combat.PhaseVictory, sess.Phase())

	reports, err := f.Service.History(context.Background(), "ayla", 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].CriticalHits)
	assert.Equal(t, sess.Snapshot().Stats.CriticalHits, reports[0].CriticalHits)
}

func TestService_EndBattleRecordsFlight(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	sess, err := f.Service.StartBattle("ayla", "tester", "pair", false)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Service.EndBattle("bren", sess.ID()), arena.ErrNotOwner)
	require.NoError(t, f.Service.EndBattle("ayla", sess.ID()))
	_, err = f.Service.Battle("ayla", sess.ID())
	assert.ErrorIs(t, err, combat.ErrSessionNotFound)

	reports, err := f.Service.History(context.Background(), "ayla", 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Fled)
	assert.False(t, reports[0].Victory)
}

func TestService_FinishedBattlesExpire(t *testing.T) {
	f := testutil.NewArenaService(t, 10*time.Millisecond)
	sess, err := f.Service.StartBattle("ayla", "tester", "duel", false)
	require.NoError(t, err)
	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAbility, Target: "dummy-1"}))

	assert.Eventually(t, func() bool { return f.Engine.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestService_RealtimeBattleAdvances(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	sess, err := f.Service.StartBattle("ayla", "tester", "duel", true)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return sess.Snapshot().Tick >= 3 }, time.Second, 5*time.Millisecond)
}

func TestApply(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	sess, err := f.Service.StartBattle("ayla", "tester", "pair", false)
	require.NoError(t, err)

	assert.ErrorIs(t, arena.Apply(sess, arena.Action{Kind: "dance"}), arena.ErrUnknownAction)
	assert.ErrorIs(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAttack}), combat.ErrNoTarget)

	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionTarget, Target: "dummy-2"}))
	assert.Equal(t, "dummy-2", sess.SelectedTarget())

	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAttack}))
	assert.Equal(t, 9, sess.Snapshot().Enemies[1].Health)

	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAbility, Ability: 0}))
	assert.ErrorIs(t, arena.Apply(sess, arena.Action{Kind: arena.ActionAbility, Ability: 0, Target: "dummy-1"}), combat.ErrOnCooldown)

	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionTick, Ticks: 2}))
	assert.Equal(t, 2, sess.Snapshot().Tick)

	require.NoError(t, arena.Apply(sess, arena.Action{Kind: arena.ActionFlee}))
	assert.ErrorIs(t, arena.Apply(sess, arena.Action{Kind: arena.ActionTick}), combat.ErrBattleOver)
}

func TestApply_TickIsHostDrivenOnly(t *testing.T) {
	f := testutil.NewArenaServiceWith(t, testutil.ArenaOptions{Retention: time.Minute, TickInterval: time.Hour})

	live, err := f.Service.StartBattle("ayla", "tester", "duel", true)
	require.NoError(t, err)
	require.NoError(t, arena.Apply(live, arena.Action{Kind: arena.ActionAbility, Ability: 1}))
	assert.ErrorIs(t, arena.Apply(live, arena.Action{Kind: arena.ActionTick, Ticks: 4}), arena.ErrRealtimeBattle)
	snap := live.Snapshot()
	assert.Equal(t, 0, snap.Tick)

	paused, err := f.Service.StartBattle("ayla", "tester", "duel", false)
	require.NoError(t, err)
	assert.ErrorIs(t, arena.Apply(paused, arena.Action{Kind: arena.ActionTick, Ticks: arena.MaxTicksPerAction + 1}), arena.ErrTooManyTicks)
	assert.Equal(t, 0, paused.Snapshot().Tick)
	require.NoError(t, arena.Apply(paused, arena.Action{Kind: arena.ActionTick, Ticks: arena.MaxTicksPerAction}))
	assert.Equal(t, arena.MaxTicksPerAction, paused.Snapshot().Tick)
}

func TestService_RecordsRealtimeBattleEndingOnFirstTick(t *testing.T) {
	rules := testutil.ArenaRules()
	rules.TimeLimitTicks = 1
	f := testutil.NewArenaServiceWith(t, testutil.ArenaOptions{
		Retention:    time.Minute,
		Rules:        &rules,
		TickInterval: time.Microsecond,
	})

	const battles = 20
	for range battles {
		_, err := f.Service.StartBattle("ayla", "tester", "duel", true)
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool {
		reps, err := f.Service.History(context.Background(), "ayla", 100)
		return err == nil && len(reps) == battles
	}, 2*time.Second, 5*time.Millisecond)
	reps, err := f.Service.History(context.Background(), "ayla", 100)
	require.NoError(t, err)
	for _, r := range reps {
		assert.True(t, r.TimedOut)
	}
}

func TestTokens(t *testing.T) {
	tokens := arena.NewTokens()
	_, ok := tokens.Owner("")
	assert.False(t, ok)

	a := tokens.Issue("ayla")
	b := tokens.Issue("ayla")
	assert.NotEqual(t, a, b)
	owner, ok := tokens.Owner(a)
	require.True(t, ok)
	assert.Equal(t, "ayla", owner)

	tokens.Revoke(a)
	_, ok = tokens.Owner(a)
	assert.False(t, ok)
	_, ok = tokens.Owner(b)
	assert.True(t, ok)
	tokens.Revoke("unknown")
}
