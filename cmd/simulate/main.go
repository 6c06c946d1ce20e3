// Package main runs headless battles with an automatic hero and prints how
// an encounter plays out, for balancing the catalog.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/scripting"
)

func main() {
	heroID := flag.String("hero", "", "hero template id")
	encounterID := flag.String("encounter", "", "encounter id")
	runs := flag.Int("runs", 100, "number of battles to simulate")
	seed := flag.Int64("seed", 1, "random seed; 0 uses crypto randomness")
	catalogDir := flag.String("catalog", "", "catalog directory; empty uses the built-in catalog")
	scriptDir := flag.String("scripts", "content/scripts", "Lua AI script directory; empty disables scripted AI")
	flag.Parse()

	if *heroID == "" || *encounterID == "" || *runs <= 0 {
		fmt.Fprintln(os.Stderr, "usage: simulate -hero <id> -encounter <id> [-runs n] [-seed n] [-catalog dir] [-scripts dir]")
		os.Exit(1)
	}

	cat, err := catalog.Load(*catalogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromViper(config.Defaults())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	rules := arena.RulesFromConfig(cfg.Combat)
	logger := zap.NewNop()
	src := dice.NewSource(*seed)

	var policy combat.EnemyPolicy = combat.RandomPolicy{Src: src}
	if *scriptDir != "" {
		mgr := scripting.NewManager(dice.NewLoggedRoller(src, logger), logger, scripting.DefaultInstructionLimit)
		if err := mgr.LoadDir(*scriptDir); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer mgr.Close()
		policy = scripting.NewPolicy(mgr, policy, logger)
	}
	engine := combat.NewEngine(combat.EngineConfig{Rules: rules, Source: src, Policy: policy, Logger: logger})

	start := time.Now()
	var wins, timeouts, ticks, defeated, enemies int
	for i := 0; i < *runs; i++ {
		hero, foes, err := cat.Battle(*heroID, *encounterID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		sess, err := engine.Start(hero, foes, combat.StartOptions{Owner: "simulate"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		maxTicks := rules.TimeLimitTicks
		if maxTicks <= 0 {
			maxTicks = 10_000
		}
		arena.AutoPlay(sess, maxTicks)
		if o, ok := sess.Outcome(); ok {
			if o.Phase == combat.PhaseVictory {
				wins++
			}
			if o.Stats.TimedOut {
				timeouts++
			}
			ticks += o.Stats.ElapsedTicks
			defeated += o.Stats.EnemiesDefeated
			enemies += o.Stats.EnemyCount
		}
		_ = engine.End(sess.ID())
	}

	n := float64(*runs)
	fmt.Printf("%s vs %s: %d battles in %s\n", *heroID, *encounterID, *runs, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  win rate:        %5.1f%%\n", 100*float64(wins)/n)
	fmt.Printf("  timeouts:        %d\n", timeouts)
	fmt.Printf("  avg ticks:       %5.1f\n", float64(ticks)/n)
	fmt.Printf("  enemies killed:  %d/%d\n", defeated, enemies)
}
