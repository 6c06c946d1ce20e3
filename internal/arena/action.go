package arena

import (
	"fmt"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

// MaxTicksPerAction bounds one tick action so a client cannot hold the
// session lock for long.
const MaxTicksPerAction = 60

// ActionKind names a hero command sent by a front end.
type ActionKind string

const (
	ActionAbility ActionKind = "ability"
	ActionAttack  ActionKind = "attack"
	ActionTarget  ActionKind = "target"
	ActionTick    ActionKind = "tick"
	ActionFlee    ActionKind = "flee"
)

// Action is one hero command. Ability is the 0-based ability index; Target is
// a participant id, empty for the selected target; Ticks applies to ActionTick.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Ability int        `json:"ability,omitempty"`
	Target  string     `json:"target,omitempty"`
	Ticks   int        `json:"ticks,omitempty"`
}

// Apply performs a on behalf of sess's hero.
//
// Postcondition: Returns the simulator's rejection error unchanged,
// ErrUnknownAction, or for ActionTick ErrRealtimeBattle / ErrTooManyTicks.
func Apply(sess *combat.Session, a Action) error {
	switch a.Kind {
	case ActionAbility:
		return sess.UseAbility(sess.HeroID(), a.Ability, a.Target)
	case ActionAttack:
		return sess.BasicAttack(sess.HeroID(), a.Target)
	case ActionTarget:
		return sess.SelectTarget(a.Target)
	case ActionTick:
		if sess.Phase().Terminal() {
			return combat.ErrBattleOver
		}
		if sess.Realtime() {
			return ErrRealtimeBattle
		}
		if a.Ticks > MaxTicksPerAction {
			return fmt.Errorf("%w: got %d", ErrTooManyTicks, a.Ticks)
		}
		sess.Advance(max(a.Ticks, 1))
		return nil
	case ActionFlee:
		return sess.Flee()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}
