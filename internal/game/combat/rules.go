package combat

import (
	"errors"
	"fmt"
)

var (
	// ErrOnCooldown is returned when the ability's cooldown has not reached zero.
	ErrOnCooldown = errors.New("ability is on cooldown")
	// ErrInsufficientMana is returned when the caster cannot pay the mana cost.
	ErrInsufficientMana = errors.New("insufficient mana")
	// ErrNoTarget is returned when a damaging action has no explicit or selected target.
	ErrNoTarget = errors.New("no target selected")
	// ErrInvalidTarget is returned when the target is defeated or on the caster's side.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrBattleOver is returned for any action after victory or defeat.
	ErrBattleOver = errors.New("battle is over")
	// ErrActorDefeated is returned when a defeated participant tries to act.
	ErrActorDefeated = errors.New("actor is defeated")
	// ErrUnknownParticipant is returned for an id not in the session.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrUnknownAbility is returned for an ability index outside the caster's list.
	ErrUnknownAbility = errors.New("unknown ability")
)

// Rules holds the tuning of one battle.
type Rules struct {
	// AITurnEvery is the number of ticks between enemy turns.
	AITurnEvery    int
	HeroManaRegen  int
	EnemyManaRegen int
	// AbilityVariance is the width of the centred roll added to hero ability damage.
	AbilityVariance int
	// EnemyVariance is the width of the centred roll added to enemy ability damage.
	EnemyVariance int
	// TimeLimitTicks ends the battle as a defeat once reached; 0 disables it.
	TimeLimitTicks int
	// LogCapacity bounds the retained event log.
	LogCapacity int
	// CritChance is the percent chance, 0 to 100, that a damaging action
	// lands a critical hit; 0 disables critical hits.
	CritChance int
	// CritMultiplier scales critical damage. It must be at least 1 when
	// CritChance is set.
	CritMultiplier float64
}

// DefaultRules mirrors the arena's classic pacing: one tick per second, an enemy
// turn every three ticks and a three-minute time limit.
func DefaultRules() Rules {
	return Rules{
		AITurnEvery:     3,
		HeroManaRegen:   2,
		EnemyManaRegen:  1,
		AbilityVariance: 10,
		EnemyVariance:   8,
		TimeLimitTicks:  180,
		LogCapacity:     100,
		CritMultiplier:  1.5,
	}
}

// Validate reports the first invalid field.
func (r Rules) Validate() error {
	switch {
	case r.AITurnEvery < 1:
		return fmt.Errorf("rules: ai turn cadence must be >= 1, got %d", r.AITurnEvery)
	case r.HeroManaRegen < 0 || r.EnemyManaRegen < 0:
		return errors.New("rules: mana regeneration must not be negative")
	case r.AbilityVariance < 0 || r.EnemyVariance < 0:
		return errors.New("rules: variance must not be negative")
	case r.TimeLimitTicks < 0:
		return fmt.Errorf("rules: time limit must be >= 0, got %d", r.TimeLimitTicks)
	case r.LogCapacity < 1:
		return fmt.Errorf("rules: log capacity must be >= 1, got %d", r.LogCapacity)
	case r.CritChance < 0 || r.CritChance > 100:
		return fmt.Errorf("rules: crit chance must be within 0..100, got %d", r.CritChance)
	case r.CritChance > 0 && r.CritMultiplier < 1:
		return fmt.Errorf("rules: crit multiplier must be >= 1, got %g", r.CritMultiplier)
	}
	return nil
}
