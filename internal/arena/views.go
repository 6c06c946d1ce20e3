package arena

import (
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
)

// AbilityView is the wire form of an ability template.
type AbilityView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ManaCost    int    `json:"mana_cost"`
	Cooldown    int    `json:"cooldown"`
	Damage      int    `json:"damage,omitempty"`
	Healing     int    `json:"healing,omitempty"`
}

// HeroView is the wire form of a hero template.
type HeroView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Class       string        `json:"class"`
	Description string        `json:"description,omitempty"`
	Health      int           `json:"health"`
	Mana        int           `json:"mana"`
	BasicAttack string        `json:"basic_attack"`
	Abilities   []AbilityView `json:"abilities"`
}

// EncounterView is the wire form of an encounter; Enemies lists enemy
// template ids in slot order.
type EncounterView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Enemies     []string `json:"enemies"`
}

// BattleView is a snapshot plus the outcome once the battle is over.
type BattleView struct {
	combat.Snapshot
	Outcome *combat.Outcome `json:"outcome,omitempty"`
}

// HeroViews lists the catalog's heroes in load order.
func HeroViews(c *catalog.Catalog) []HeroView {
	heroes := c.Heroes()
	out := make([]HeroView, 0, len(heroes))
	for _, h := range heroes {
		v := HeroView{
			ID: h.ID, Name: h.Name, Class: h.Class, Description: h.Description,
			Health: h.Health, Mana: h.Mana, BasicAttack: h.BasicAttack,
			Abilities: make([]AbilityView, 0, len(h.Abilities)),
		}
		for _, a := range h.Abilities {
			v.Abilities = append(v.Abilities, AbilityView{
				ID: a.ID, Name: a.Name, Description: a.Description,
				ManaCost: a.ManaCost, Cooldown: a.Cooldown, Damage: a.Damage, Healing: a.Healing,
			})
		}
		out = append(out, v)
	}
	return out
}

// EncounterViews lists the catalog's encounters in load order.
func EncounterViews(c *catalog.Catalog) []EncounterView {
	encounters := c.Encounters()
	out := make([]EncounterView, 0, len(encounters))
	for _, e := range encounters {
		v := EncounterView{ID: e.ID, Name: e.Name, Description: e.Description, Enemies: []string{}}
		for _, slot := range e.Slots {
			v.Enemies = append(v.Enemies, slot.Enemy)
		}
		out = append(out, v)
	}
	return out
}

// ViewOf captures sess at one instant.
func ViewOf(sess *combat.Session) BattleView {
	v := BattleView{Snapshot: sess.Snapshot()}
	if o, ok := sess.Outcome(); ok {
		v.Outcome = &o
	}
	return v
}
