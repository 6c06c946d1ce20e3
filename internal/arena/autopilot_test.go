package arena_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/testutil"
)

func autoSnapshot(health, mana int) combat.Snapshot {
	return combat.Snapshot{
		Hero: combat.ParticipantState{
			ID: "hero", Health: health, MaxHealth: 90, Mana: mana, MaxMana: 50, Alive: true,
			Abilities: []combat.AbilityState{
				{Index: 0, ID: "jab", ManaCost: 5, Damage: 10, Ready: true},
				{Index: 1, ID: "nuke", ManaCost: 30, Damage: 40, Ready: true},
				{Index: 2, ID: "mend", ManaCost: 10, Healing: 20, Ready: true},
			},
		},
		Enemies: []combat.ParticipantState{
			{ID: "orc-1", Health: 0, Alive: false},
			{ID: "orc-2", Health: 30, Alive: true},
			{ID: "orc-3", Health: 12, Alive: true},
		},
	}
}

func TestAutoAction(t *testing.T) {
	tests := []struct {
		name string
		snap func() combat.Snapshot
		want arena.Action
	}{
		{
			name: "strongest affordable ability on weakest enemy",
			snap: func() combat.Snapshot { return autoSnapshot(90, 50) },
			want: arena.Action{Kind: arena.ActionAbility, Ability: 1, Target: "orc-3"},
		},
		{
			name: "cheaper ability when mana is short",
			snap: func() combat.Snapshot { return autoSnapshot(90, 20) },
			want: arena.Action{Kind: arena.ActionAbility, Ability: 0, Target: "orc-3"},
		},
		{
			name: "heals when low",
			snap: func() combat.Snapshot { return autoSnapshot(20, 50) },
			want: arena.Action{Kind: arena.ActionAbility, Ability: 2},
		},
		{
			name: "basic attack when nothing is ready",
			snap: func() combat.Snapshot {
				s := autoSnapshot(90, 50)
				for i := range s.Hero.Abilities {
					s.Hero.Abilities[i].Ready = false
				}
				return s
			},
			want: arena.Action{Kind: arena.ActionAttack, Target: "orc-3"},
		},
		{
			name: "tick once the battle is over",
			snap: func() combat.Snapshot {
				s := autoSnapshot(90, 50)
				s.Phase = combat.PhaseVictory
				return s
			},
			want: arena.Action{Kind: arena.ActionTick, Ticks: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, arena.AutoAction(tt.snap()))
		})
	}
}

func TestAutoPlay_WinsThePair(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	sess, err := f.Service.StartBattle("bot", "tester", "pair", false)
	require.NoError(t, err)

	assert.Equal(t, combat.PhaseVictory, arena.AutoPlay(sess, 100))
	o, ok := sess.Outcome()
	require.True(t, ok)
	assert.Equal(t, 2, o.Stats.EnemiesDefeated)
	assert.Greater(t, o.Stats.ElapsedTicks, 0)
}

func TestAutoPlay_StopsAtMaxTicks(t *testing.T) {
	f := testutil.NewArenaService(t, time.Minute)
	sess, err := f.Service.StartBattle("bot", "tester", "duel", false)
	require.NoError(t, err)

	assert.Equal(t, combat.PhaseOngoing, arena.AutoPlay(sess, 0))
	assert.Equal(t, 0, sess.Snapshot().Tick)
}
