package combat_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
)

type fixedSrc struct{ val int }

func (f fixedSrc) Intn(_ int) int { return f.val }

// testRules has no variance and no time limit so damage is exact.
func testRules() combat.Rules {
	return combat.Rules{
		AITurnEvery:    3,
		HeroManaRegen:  2,
		EnemyManaRegen: 1,
		LogCapacity:    50,
	}
}

func hero(health, mana int, abilities ...combat.Ability) combat.Participant {
	return combat.Participant{
		ID:          "hero",
		Name:        "Arcane Wizard",
		Class:       "wizard",
		Health:      health,
		MaxHealth:   health,
		Mana:        mana,
		MaxMana:     max(mana, 100),
		Abilities:   abilities,
		BasicAttack: dice.MustParse("1d4"),
	}
}

func enemy(id string, health int, abilities ...combat.Ability) combat.Participant {
	return combat.Participant{
		ID:          id,
		Name:        "Goblin " + id,
		Class:       "goblin",
		Health:      health,
		MaxHealth:   health,
		Mana:        50,
		MaxMana:     50,
		Abilities:   abilities,
		BasicAttack: dice.MustParse("1d4"),
	}
}

func bolt(damage, cost, cooldown int) combat.Ability {
	return combat.Ability{ID: "bolt", Name: "Bolt", ManaCost: cost, Cooldown: cooldown, Damage: damage}
}

func newSession(t testing.TB, rules combat.Rules, src dice.Source, h combat.Participant, enemies ...combat.Participant) *combat.Session {
	t.Helper()
	logger := zaptest.NewLogger(t)
	s, err := combat.NewSession(combat.SessionConfig{
		ID:      "test",
		Hero:    h,
		Enemies: enemies,
		Rules:   rules,
		Roller:  dice.NewLoggedRoller(src, logger),
		Logger:  logger,
	})
	require.NoError(t, err)
	return s
}
