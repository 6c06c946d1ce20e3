// Package combat implements the arena's tick-driven combat simulator: one hero
// against a line-up of enemies, with health, mana and ability cooldowns.
package combat

import (
	"fmt"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// Side distinguishes the hero from the enemies.
type Side int

const (
	SideHero Side = iota
	SideEnemy
)

// String returns "hero" or "enemy".
func (s Side) String() string {
	switch s {
	case SideHero:
		return "hero"
	case SideEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Position is a 2D coordinate carried for renderers only.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ability is an immutable ability template. Only the remaining cooldown,
// tracked per owner, changes during a battle.
type Ability struct {
	ID          string
	Name        string
	Description string
	ManaCost    int
	// Cooldown is the number of ticks the ability is unavailable after use.
	Cooldown int
	Damage   int
	Healing  int
}

// Offensive reports whether the ability needs an opposing target.
func (a Ability) Offensive() bool { return a.Damage > 0 }

// Participant is a hero or enemy inside a Session.
//
// Invariant: 0 <= Health <= MaxHealth, 0 <= Mana <= MaxMana,
// len(Cooldowns) == len(Abilities), every cooldown >= 0.
type Participant struct {
	ID          string
	Name        string
	Class       string
	Side        Side
	Health      int
	MaxHealth   int
	Mana        int
	MaxMana     int
	Abilities   []Ability
	Cooldowns   []int
	BasicAttack dice.Expression
	Position    Position
	// AIScript names the scripted policy hook used for this enemy, if any.
	AIScript string
}

// Alive reports whether the participant can still act or be targeted.
func (p *Participant) Alive() bool { return p.Health > 0 }

// clone returns a deep copy with freshly sized cooldowns.
func (p Participant) clone() *Participant {
	c := p
	c.Abilities = append([]Ability(nil), p.Abilities...)
	c.Cooldowns = make([]int, len(p.Abilities))
	copy(c.Cooldowns, p.Cooldowns)
	return &c
}

// validate checks a participant template before a battle starts.
func (p *Participant) validate() error {
	if p.ID == "" {
		return fmt.Errorf("participant %q: id must not be empty", p.Name)
	}
	if p.MaxHealth < 1 {
		return fmt.Errorf("participant %q: max health must be >= 1", p.ID)
	}
	if p.MaxMana < 0 {
		return fmt.Errorf("participant %q: max mana must be >= 0", p.ID)
	}
	if p.Health < 1 || p.Health > p.MaxHealth {
		return fmt.Errorf("participant %q: health %d outside [1, %d]", p.ID, p.Health, p.MaxHealth)
	}
	if p.Mana < 0 || p.Mana > p.MaxMana {
		return fmt.Errorf("participant %q: mana %d outside [0, %d]", p.ID, p.Mana, p.MaxMana)
	}
	if p.BasicAttack.Count < 1 {
		return fmt.Errorf("participant %q: basic attack expression is required", p.ID)
	}
	for i, a := range p.Abilities {
		if a.ManaCost < 0 || a.Cooldown < 0 || a.Damage < 0 || a.Healing < 0 {
			return fmt.Errorf("participant %q: ability %d (%s) has a negative field", p.ID, i, a.Name)
		}
	}
	return nil
}

// canUse reports why ability i cannot be used right now, or nil.
func (p *Participant) canUse(i int) error {
	if i < 0 || i >= len(p.Abilities) {
		return ErrUnknownAbility
	}
	if p.Cooldowns[i] > 0 {
		return ErrOnCooldown
	}
	if p.Mana < p.Abilities[i].ManaCost {
		return ErrInsufficientMana
	}
	return nil
}

// usable returns the indices of every ability canUse accepts.
func (p *Participant) usable() []int {
	var out []int
	for i := range p.Abilities {
		if p.canUse(i) == nil {
			out = append(out, i)
		}
	}
	return out
}

// takeDamage subtracts amount, flooring at zero, and returns the health lost.
func (p *Participant) takeDamage(amount int) int {
	before := p.Health
	p.Health = clamp(p.Health-amount, 0, p.MaxHealth)
	return before - p.Health
}

// heal adds amount, capped at MaxHealth, and returns the health gained.
func (p *Participant) heal(amount int) int {
	before := p.Health
	p.Health = clamp(p.Health+amount, 0, p.MaxHealth)
	return p.Health - before
}

func (p *Participant) regenerate(amount int) {
	p.Mana = clamp(p.Mana+amount, 0, p.MaxMana)
}

func (p *Participant) decayCooldowns() {
	for i, cd := range p.Cooldowns {
		if cd > 0 {
			p.Cooldowns[i] = cd - 1
		}
	}
}

// assertInvariants panics when a resource escaped its bounds.
func (p *Participant) assertInvariants() {
	if p.Health < 0 || p.Health > p.MaxHealth {
		panic(fmt.Sprintf("combat: %s health %d outside [0, %d]", p.ID, p.Health, p.MaxHealth))
	}
	if p.Mana < 0 || p.Mana > p.MaxMana {
		panic(fmt.Sprintf("combat: %s mana %d outside [0, %d]", p.ID, p.Mana, p.MaxMana))
	}
	for i, cd := range p.Cooldowns {
		if cd < 0 {
			panic(fmt.Sprintf("combat: %s cooldown %d is negative", p.ID, i))
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
