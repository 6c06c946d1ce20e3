package arena

import "github.com/cory-johannsen/arena/internal/game/combat"

// AutoAction picks a move for the hero in snap: a heal once health falls
// below a third, else the hardest-hitting ready ability against the weakest
// living enemy, else a basic attack on it.
//
// Postcondition: Returns an ActionTick when the battle is over or no enemy
// is alive.
func AutoAction(snap combat.Snapshot) Action {
	if snap.Phase.Terminal() {
		return Action{Kind: ActionTick, Ticks: 1}
	}
	hero := snap.Hero
	var target *combat.ParticipantState
	for i := range snap.Enemies {
		e := &snap.Enemies[i]
		if e.Alive && (target == nil || e.Health < target.Health) {
			target = e
		}
	}
	if target == nil {
		return Action{Kind: ActionTick, Ticks: 1}
	}

	affordable := func(a combat.AbilityState) bool { return a.Ready && hero.Mana >= a.ManaCost }
	if hero.Health*3 < hero.MaxHealth {
		for _, a := range hero.Abilities {
			if a.Healing > 0 && affordable(a) {
				return Action{Kind: ActionAbility, Ability: a.Index}
			}
		}
	}
	best := -1
	for i, a := range hero.Abilities {
		if a.Damage > 0 && affordable(a) && (best < 0 || a.Damage > hero.Abilities[best].Damage) {
			best = i
		}
	}
	if best >= 0 {
		return Action{Kind: ActionAbility, Ability: hero.Abilities[best].Index, Target: target.ID}
	}
	return Action{Kind: ActionAttack, Target: target.ID}
}

// AutoPlay drives sess to its end with AutoAction, one hero move per tick.
// It gives up after maxTicks ticks.
//
// Postcondition: Returns the final phase.
func AutoPlay(sess *combat.Session, maxTicks int) combat.Phase {
	for i := 0; i < maxTicks && !sess.Phase().Terminal(); i++ {
		if a := AutoAction(sess.Snapshot()); a.Kind != ActionTick {
			_ = Apply(sess, a)
		}
		sess.Advance(1)
	}
	return sess.Phase()
}
