package combat

import "github.com/cory-johannsen/arena/internal/game/dice"

// EnemyPolicy chooses which ability an enemy uses on its turn.
//
// Implementations MUST be safe for concurrent use; a policy is shared by every
// session of an Engine.
type EnemyPolicy interface {
	// ChooseAbility returns an index from usable, or -1 to skip the turn.
	//
	// Precondition: usable is non-empty and every entry indexes enemy.Abilities.
	ChooseAbility(enemy, hero ParticipantState, usable []int) int
}

// RandomPolicy picks uniformly among the usable abilities.
type RandomPolicy struct {
	Src dice.Source
}

// ChooseAbility implements EnemyPolicy.
func (p RandomPolicy) ChooseAbility(_, _ ParticipantState, usable []int) int {
	if len(usable) == 0 {
		return -1
	}
	return usable[p.Src.Intn(len(usable))]
}
