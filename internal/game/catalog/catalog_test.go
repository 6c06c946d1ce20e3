package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/game/catalog"
)

const miniCatalog = `
heroes:
  - id: knight
    name: Knight
    class: Fighter
    health: 100
    mana: 50
    basic_attack: 1d6+1
    abilities:
      - id: slash
        name: Slash
        mana_cost: 10
        cooldown: 2
        damage: 20
enemies:
  - id: rat
    name: Giant Rat
    health: 20
    mana: 0
    basic_attack: 1d4
    ai_script: skittish
encounters:
  - id: cellar
    name: Cellar
    hero_x: 10
    hero_y: 20
    enemies:
      - enemy: rat
        x: 1
        y: 2
      - enemy: rat
        x: 3
        y: 4
`

func TestDefault_HasClassicRoster(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	heroes := c.Heroes()
	require.Len(t, heroes, 4)
	names := []string{heroes[0].Name, heroes[1].Name, heroes[2].Name, heroes[3].Name}
	assert.Equal(t, []string{"Arcane Wizard", "Shadow Rogue", "Holy Paladin", "Fierce Barbarian"}, names)

	wizard, err := c.Hero("wizard")
	require.NoError(t, err)
	assert.Equal(t, 80, wizard.Health)
	assert.Equal(t, 120, wizard.Mana)
	require.Len(t, wizard.Abilities, 4)
	assert.Equal(t, "Fireball", wizard.Abilities[0].Name)
	assert.Equal(t, 45, wizard.Abilities[0].Damage)

	skirmish, err := c.Encounter("skirmish")
	require.NoError(t, err)
	assert.Len(t, skirmish.Slots, 3)
	gauntlet, err := c.Encounter("gauntlet")
	require.NoError(t, err)
	assert.Len(t, gauntlet.Slots, 4)
	assert.Contains(t, c.EnemyIDs(), "skeleton")
}

func TestBattle_BuildsParticipants(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	hero, enemies, err := c.Battle("barbarian", "skirmish")
	require.NoError(t, err)
	assert.Equal(t, catalog.HeroParticipantID, hero.ID)
	assert.Equal(t, "Fierce Barbarian", hero.Name)
	assert.Equal(t, 160, hero.Health)
	assert.Equal(t, hero.MaxHealth, hero.Health)
	assert.Equal(t, 60, hero.Mana)
	assert.Equal(t, 15, hero.Abilities[3].Damage)
	assert.Equal(t, 25, hero.Abilities[3].Healing)
	assert.Equal(t, 100.0, hero.Position.X)

	require.Len(t, enemies, 3)
	assert.Equal(t, "goblin-warrior-1", enemies[0].ID)
	assert.Equal(t, "orc-berserker-2", enemies[1].ID)
	assert.Equal(t, "berserker", enemies[1].AIScript)
	assert.Equal(t, 600.0, enemies[0].Position.X)
}

func TestBattle_UnknownIDs(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	_, _, err = c.Battle("necromancer", "skirmish")
	assert.ErrorIs(t, err, catalog.ErrHeroNotFound)
	_, _, err = c.Battle("wizard", "moon")
	assert.ErrorIs(t, err, catalog.ErrEncounterNotFound)
}

func TestLoadFS_MergesFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"all.yaml":   {Data: []byte(miniCatalog)},
		"notes.txt":  {Data: []byte("ignored")},
		"extra.yml":  {Data: []byte("heroes:\n  - {id: monk, name: Monk, health: 90, mana: 70, basic_attack: 1d6}\n")},
		"nested/x.y": {Data: []byte("ignored")},
	}
	c, err := catalog.LoadFS(fsys)
	require.NoError(t, err)
	assert.Len(t, c.Heroes(), 2)

	hero, enemies, err := c.Battle("knight", "cellar")
	require.NoError(t, err)
	assert.Equal(t, 10.0, hero.Position.X)
	assert.Equal(t, []string{"rat-1", "rat-2"}, []string{enemies[0].ID, enemies[1].ID})
	assert.Equal(t, "skittish", enemies[0].AIScript)
}

func TestLoadDocument_Validation(t *testing.T) {
	cases := map[string]string{
		"bad yaml":          "heroes: [",
		"hero without id":   "heroes:\n  - {name: X, health: 10, basic_attack: 1d4}\n",
		"zero health":       "heroes:\n  - {id: x, name: X, health: 0, basic_attack: 1d4}\n",
		"bad basic attack":  "heroes:\n  - {id: x, name: X, health: 10, basic_attack: lots}\n",
		"negative cost":     "enemies:\n  - {id: x, name: X, health: 10, basic_attack: 1d4, abilities: [{id: a, name: A, mana_cost: -1}]}\n",
		"duplicate ability": "enemies:\n  - {id: x, name: X, health: 10, basic_attack: 1d4, abilities: [{id: a, name: A}, {id: a, name: B}]}\n",
		"empty encounter":   "encounters:\n  - {id: e, name: E}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.LoadDocumentFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestBuild_CrossValidation(t *testing.T) {
	doc, err := catalog.LoadDocumentFromBytes([]byte(miniCatalog))
	require.NoError(t, err)

	_, err = catalog.Build(doc, doc)
	assert.ErrorContains(t, err, "duplicate")

	dangling, err := catalog.LoadDocumentFromBytes([]byte(
		"heroes:\n  - {id: k, name: K, health: 10, basic_attack: 1d4}\n" +
			"encounters:\n  - {id: e, name: E, enemies: [{enemy: dragon}]}\n"))
	require.NoError(t, err)
	_, err = catalog.Build(dangling)
	assert.ErrorContains(t, err, "unknown enemy")

	_, err = catalog.Build()
	assert.Error(t, err)
}

func TestLoad_EmptyDirUsesDefaults(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)
	assert.Len(t, c.Heroes(), 4)

	_, err = catalog.Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(miniCatalog), 0o644))

	c, err := catalog.Load(dir)
	require.NoError(t, err)
	store := catalog.NewStore(c)

	w, err := catalog.NewWatcher(dir, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- w.Start() }()
	defer func() {
		w.Stop()
		<-done
	}()

	// a broken edit keeps the previous catalog
	require.NoError(t, os.WriteFile(path, []byte("heroes: ["), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Same(t, c, store.Current())

	require.NoError(t, os.WriteFile(path, []byte(miniCatalog), 0o644))
	require.Eventually(t, func() bool { return w.Reloads() >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.NotSame(t, c, store.Current())
	_, err = store.Current().Hero("knight")
	assert.NoError(t, err)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w, err := catalog.NewWatcher(t.TempDir(), catalog.NewStore(nil), zaptest.NewLogger(t))
	require.NoError(t, err)
	w.Stop()
	w.Stop()
	assert.NoError(t, w.Start())
}
