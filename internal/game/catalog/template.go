// Package catalog provides the read-only hero, enemy and encounter templates
// that battles are built from.
package catalog

import (
	"fmt"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
)

// AbilityTemplate is one ability as written in YAML.
type AbilityTemplate struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ManaCost    int    `yaml:"mana_cost"`
	Cooldown    int    `yaml:"cooldown"`
	Damage      int    `yaml:"damage"`
	Healing     int    `yaml:"healing"`
}

// Validate checks that the ability has a name and no negative numbers.
func (a AbilityTemplate) Validate() error {
	if a.ID == "" || a.Name == "" {
		return fmt.Errorf("ability %q: id and name must not be empty", a.ID)
	}
	if a.ManaCost < 0 || a.Cooldown < 0 || a.Damage < 0 || a.Healing < 0 {
		return fmt.Errorf("ability %q: mana_cost, cooldown, damage and healing must be >= 0", a.ID)
	}
	return nil
}

func (a AbilityTemplate) toAbility() combat.Ability {
	return combat.Ability{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		ManaCost:    a.ManaCost,
		Cooldown:    a.Cooldown,
		Damage:      a.Damage,
		Healing:     a.Healing,
	}
}

// Unit holds the fields heroes and enemies share.
type Unit struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Class       string            `yaml:"class"`
	Description string            `yaml:"description"`
	Health      int               `yaml:"health"`
	Mana        int               `yaml:"mana"`
	BasicAttack string            `yaml:"basic_attack"`
	Abilities   []AbilityTemplate `yaml:"abilities"`
}

func (u *Unit) validate(kind string) error {
	if u.ID == "" {
		return fmt.Errorf("%s template: id must not be empty", kind)
	}
	if u.Name == "" {
		return fmt.Errorf("%s template %q: name must not be empty", kind, u.ID)
	}
	if u.Health < 1 {
		return fmt.Errorf("%s template %q: health must be >= 1", kind, u.ID)
	}
	if u.Mana < 0 {
		return fmt.Errorf("%s template %q: mana must be >= 0", kind, u.ID)
	}
	if _, err := dice.Parse(u.BasicAttack); err != nil {
		return fmt.Errorf("%s template %q: basic_attack: %w", kind, u.ID, err)
	}
	seen := make(map[string]bool, len(u.Abilities))
	for _, a := range u.Abilities {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s template %q: %w", kind, u.ID, err)
		}
		if seen[a.ID] {
			return fmt.Errorf("%s template %q: duplicate ability %q", kind, u.ID, a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// participant builds a full-health, full-mana combat participant.
//
// Precondition: validate returned nil.
func (u *Unit) participant(id string, pos combat.Position) combat.Participant {
	abilities := make([]combat.Ability, len(u.Abilities))
	for i, a := range u.Abilities {
		abilities[i] = a.toAbility()
	}
	return combat.Participant{
		ID:          id,
		Name:        u.Name,
		Class:       u.Class,
		Health:      u.Health,
		MaxHealth:   u.Health,
		Mana:        u.Mana,
		MaxMana:     u.Mana,
		Abilities:   abilities,
		BasicAttack: dice.MustParse(u.BasicAttack),
		Position:    pos,
	}
}

// HeroTemplate is a selectable hero.
type HeroTemplate struct {
	Unit `yaml:",inline"`
}

// Validate checks the hero's invariants.
func (h *HeroTemplate) Validate() error { return h.validate("hero") }

// EnemyTemplate is an enemy archetype placed by encounters.
type EnemyTemplate struct {
	Unit `yaml:",inline"`
	// AIScript names the Lua hook that picks this enemy's abilities; empty
	// uses the engine's default policy.
	AIScript string `yaml:"ai_script"`
}

// Validate checks the enemy's invariants.
func (e *EnemyTemplate) Validate() error { return e.validate("enemy") }

// Slot places one enemy in an encounter.
type Slot struct {
	Enemy string  `yaml:"enemy"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
}

// Encounter is a named enemy line-up.
type Encounter struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Slots       []Slot `yaml:"enemies"`
	// HeroX and HeroY place the hero; renderers only.
	HeroX float64 `yaml:"hero_x"`
	HeroY float64 `yaml:"hero_y"`
}

// Validate checks the encounter's own fields. Enemy references are checked
// when the catalog is assembled.
func (e *Encounter) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("encounter: id must not be empty")
	}
	if e.Name == "" {
		return fmt.Errorf("encounter %q: name must not be empty", e.ID)
	}
	if len(e.Slots) == 0 {
		return fmt.Errorf("encounter %q: at least one enemy is required", e.ID)
	}
	return nil
}
