package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

var (
	// ErrHeroNotFound is returned for an unknown hero id.
	ErrHeroNotFound = errors.New("hero not found")
	// ErrEncounterNotFound is returned for an unknown encounter id.
	ErrEncounterNotFound = errors.New("encounter not found")
)

// HeroParticipantID is the participant id every hero gets inside a battle.
const HeroParticipantID = "hero"

// Document is the content of one YAML file. A file may hold any mix of
// heroes, enemies and encounters.
type Document struct {
	Heroes     []HeroTemplate  `yaml:"heroes"`
	Enemies    []EnemyTemplate `yaml:"enemies"`
	Encounters []Encounter     `yaml:"encounters"`
}

// LoadDocumentFromBytes parses and validates one YAML document.
//
// Postcondition: Returns a Document whose every template passed Validate, or an error.
func LoadDocumentFromBytes(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	for i := range doc.Heroes {
		if err := doc.Heroes[i].Validate(); err != nil {
			return nil, err
		}
	}
	for i := range doc.Enemies {
		if err := doc.Enemies[i].Validate(); err != nil {
			return nil, err
		}
	}
	for i := range doc.Encounters {
		if err := doc.Encounters[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

// Catalog is an immutable, cross-validated set of templates.
type Catalog struct {
	heroes     []*HeroTemplate
	heroByID   map[string]*HeroTemplate
	enemyByID  map[string]*EnemyTemplate
	encounters []*Encounter
	encByID    map[string]*Encounter
}

// Build assembles docs into a Catalog.
//
// Postcondition: ids are unique per kind, every encounter slot names a known
// enemy, and at least one hero and one encounter exist; otherwise an error.
func Build(docs ...*Document) (*Catalog, error) {
	c := &Catalog{
		heroByID:  make(map[string]*HeroTemplate),
		enemyByID: make(map[string]*EnemyTemplate),
		encByID:   make(map[string]*Encounter),
	}
	for _, d := range docs {
		for i := range d.Heroes {
			h := &d.Heroes[i]
			if _, dup := c.heroByID[h.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate hero %q", h.ID)
			}
			c.heroByID[h.ID] = h
			c.heroes = append(c.heroes, h)
		}
		for i := range d.Enemies {
			e := &d.Enemies[i]
			if _, dup := c.enemyByID[e.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate enemy %q", e.ID)
			}
			c.enemyByID[e.ID] = e
		}
		for i := range d.Encounters {
			enc := &d.Encounters[i]
			if _, dup := c.encByID[enc.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate encounter %q", enc.ID)
			}
			c.encByID[enc.ID] = enc
			c.encounters = append(c.encounters, enc)
		}
	}
	for _, enc := range c.encounters {
		for _, slot := range enc.Slots {
			if _, ok := c.enemyByID[slot.Enemy]; !ok {
				return nil, fmt.Errorf("catalog: encounter %q references unknown enemy %q", enc.ID, slot.Enemy)
			}
		}
	}
	if len(c.heroes) == 0 {
		return nil, errors.New("catalog: at least one hero is required")
	}
	if len(c.encounters) == 0 {
		return nil, errors.New("catalog: at least one encounter is required")
	}
	return c, nil
}

// LoadFS reads every *.yaml file at the root of fsys, in name order, and
// builds a Catalog from them.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir: %w", err)
	}
	var docs []*Document
	for _, entry := range entries {
		if entry.IsDir() || !isTemplateFile(entry.Name()) {
			continue
		}
		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", entry.Name(), err)
		}
		doc, err := LoadDocumentFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", entry.Name(), err)
		}
		docs = append(docs, doc)
	}
	return Build(docs...)
}

func isTemplateFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Heroes returns the heroes in load order.
func (c *Catalog) Heroes() []*HeroTemplate {
	return append([]*HeroTemplate(nil), c.heroes...)
}

// Hero returns the hero with id.
func (c *Catalog) Hero(id string) (*HeroTemplate, error) {
	h, ok := c.heroByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHeroNotFound, id)
	}
	return h, nil
}

// Enemy returns the enemy with id, or false.
func (c *Catalog) Enemy(id string) (*EnemyTemplate, bool) {
	e, ok := c.enemyByID[id]
	return e, ok
}

// EnemyIDs returns every enemy id, sorted.
func (c *Catalog) EnemyIDs() []string {
	ids := make([]string, 0, len(c.enemyByID))
	for id := range c.enemyByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Encounters returns the encounters in load order.
func (c *Catalog) Encounters() []*Encounter {
	return append([]*Encounter(nil), c.encounters...)
}

// Encounter returns the encounter with id.
func (c *Catalog) Encounter(id string) (*Encounter, error) {
	e, ok := c.encByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEncounterNotFound, id)
	}
	return e, nil
}

// Battle builds the participants for heroID fighting encounterID. Enemy ids
// are "<enemy>-<n>", numbered from 1 in slot order.
//
// Postcondition: hero.ID == HeroParticipantID; len(enemies) equals the slot count.
func (c *Catalog) Battle(heroID, encounterID string) (combat.Participant, []combat.Participant, error) {
	h, err := c.Hero(heroID)
	if err != nil {
		return combat.Participant{}, nil, err
	}
	enc, err := c.Encounter(encounterID)
	if err != nil {
		return combat.Participant{}, nil, err
	}

	hero := h.participant(HeroParticipantID, combat.Position{X: enc.HeroX, Y: enc.HeroY})
	enemies := make([]combat.Participant, len(enc.Slots))
	for i, slot := range enc.Slots {
		tmpl := c.enemyByID[slot.Enemy]
		p := tmpl.participant(fmt.Sprintf("%s-%d", slot.Enemy, i+1), combat.Position{X: slot.X, Y: slot.Y})
		p.AIScript = tmpl.AIScript
		enemies[i] = p
	}
	return hero, enemies, nil
}
