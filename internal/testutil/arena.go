package testutil

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/storage/memory"
)

// ArenaCatalogYAML is a tiny deterministic catalog: the "tester" hero's Smite
// one-shots the "dummy" enemy, and Mend heals without a target.
const ArenaCatalogYAML = `
heroes:
  - id: tester
    name: Test Hero
    class: tester
    health: 100
    mana: 50
    basic_attack: 1d2
    abilities:
      - id: smite
        name: Smite
        mana_cost: 10
        cooldown: 2
        damage: 100
      - id: mend
        name: Mend
        mana_cost: 5
        healing: 10
enemies:
  - id: dummy
    name: Training Dummy
    class: dummy
    health: 10
    mana: 0
    basic_attack: 1d2
encounters:
  - id: duel
    name: Duel
    enemies:
      - enemy: dummy
  - id: pair
    name: Pair
    enemies:
      - enemy: dummy
      - enemy: dummy
`

// ArenaRules has no damage variance and no time limit.
func ArenaRules() combat.Rules {
	return combat.Rules{AITurnEvery: 3, HeroManaRegen: 2, EnemyManaRegen: 1, LogCapacity: 50}
}

type zeroSource struct{}

func (zeroSource) Intn(_ int) int { return 0 }

// ArenaFixture is a Service over in-memory stores and ArenaCatalogYAML.
type ArenaFixture struct {
	Service  *arena.Service
	Engine   *combat.Engine
	Accounts *memory.AccountStore
	Reports  *memory.ReportStore
}

// ArenaOptions tunes NewArenaServiceWith. Zero fields take ArenaRules and a
// 5ms tick.
type ArenaOptions struct {
	Retention    time.Duration
	Rules        *combat.Rules
	TickInterval time.Duration
}

// NewArenaService builds an ArenaFixture whose finished battles are discarded
// after retention.
//
// Postcondition: the service is closed when the test ends.
func NewArenaService(t testing.TB, retention time.Duration) *ArenaFixture {
	t.Helper()
	return NewArenaServiceWith(t, ArenaOptions{Retention: retention})
}

// NewArenaServiceWith is NewArenaService with custom rules and tick interval.
func NewArenaServiceWith(t testing.TB, opts ArenaOptions) *ArenaFixture {
	t.Helper()
	rules := ArenaRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 5 * time.Millisecond
	}
	doc, err := catalog.LoadDocumentFromBytes([]byte(ArenaCatalogYAML))
	if err != nil {
		t.Fatalf("parsing test catalog: %v", err)
	}
	cat, err := catalog.Build(doc)
	if err != nil {
		t.Fatalf("building test catalog: %v", err)
	}
	logger := zaptest.NewLogger(t)
	engine := combat.NewEngine(combat.EngineConfig{
		Rules:        rules,
		TickInterval: opts.TickInterval,
		Source:       zeroSource{},
		Logger:       logger,
	})
	f := &ArenaFixture{
		Engine:   engine,
		Accounts: memory.NewAccountStore(),
		Reports:  memory.NewReportStore(),
	}
	f.Service = arena.New(arena.Config{
		Catalog:   catalog.NewStore(cat),
		Engine:    engine,
		Accounts:  f.Accounts,
		Reports:   f.Reports,
		Logger:    logger,
		Retention: opts.Retention,
	})
	t.Cleanup(f.Service.Close)
	return f
}
