package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/arena/internal/frontend/telnet"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/storage"
)

const (
	barWidth = 20
	// logLines is how many recent events the battle screen shows.
	logLines = 5
)

// Bar renders cur/max as a fixed-width block bar.
//
// Precondition: width > 0.
// Postcondition: the bar is exactly width visible cells.
func Bar(cur, maxVal, width int, color string) string {
	filled := 0
	if maxVal > 0 {
		filled = min(max(cur, 0)*width/maxVal, width)
		if cur > 0 && filled == 0 {
			filled = 1
		}
	}
	return telnet.Colorize(color, strings.Repeat("█", filled)) +
		telnet.Colorize(telnet.Dim, strings.Repeat("░", width-filled))
}

// healthColor shades a health bar by the share remaining.
func healthColor(cur, maxVal int) string {
	switch {
	case maxVal == 0 || cur*2 > maxVal:
		return telnet.Green
	case cur*4 > maxVal:
		return telnet.Yellow
	default:
		return telnet.Red
	}
}

// Clock renders ticks as m:ss at the given tick interval.
func Clock(ticks int, interval time.Duration) string {
	d := time.Duration(ticks) * interval
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// RenderBattle draws the live battle screen: hero, numbered enemies, the
// hero's abilities, the last few log lines and an optional notice.
func RenderBattle(snap combat.Snapshot, recent []combat.Event, notice string, interval time.Duration) string {
	var b strings.Builder

	header := fmt.Sprintf("ARENA  tick %d", snap.Tick)
	if snap.TicksRemaining > 0 {
		header += "  time left " + Clock(snap.TicksRemaining, interval)
	}
	b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightYellow, header))
	b.WriteString("\n\n")

	h := snap.Hero
	b.WriteString(telnet.Colorf(telnet.Bold+telnet.Cyan, "%s", h.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  HP   %s %d/%d\n", Bar(h.Health, h.MaxHealth, barWidth, healthColor(h.Health, h.MaxHealth)), h.Health, h.MaxHealth)
	fmt.Fprintf(&b, "  MANA %s %d/%d\n\n", Bar(h.Mana, h.MaxMana, barWidth, telnet.Blue), h.Mana, h.MaxMana)

	b.WriteString(telnet.Colorize(telnet.Bold, "Enemies"))
	b.WriteString("\n")
	for i, e := range snap.Enemies {
		marker := "  "
		if e.ID == snap.SelectedTarget {
			marker = telnet.Colorize(telnet.BrightRed, "> ")
		}
		name := telnet.PadRight(e.Name, 18)
		if !e.Alive {
			fmt.Fprintf(&b, "%s%d) %s %s\n", marker, i+1, telnet.Colorize(telnet.Dim, name), telnet.Colorize(telnet.Dim, "defeated"))
			continue
		}
		fmt.Fprintf(&b, "%s%d) %s %s %d/%d\n", marker, i+1, name,
			Bar(e.Health, e.MaxHealth, barWidth, healthColor(e.Health, e.MaxHealth)), e.Health, e.MaxHealth)
	}
	b.WriteString("\n")

	b.WriteString(telnet.Colorize(telnet.Bold, "Abilities"))
	b.WriteString("\n")
	for _, a := range h.Abilities {
		status := telnet.Colorize(telnet.BrightGreen, "ready")
		switch {
		case a.Remaining > 0:
			status = telnet.Colorf(telnet.Yellow, "cooldown %d", a.Remaining)
		case h.Mana < a.ManaCost:
			status = telnet.Colorize(telnet.Blue, "no mana")
		}
		fmt.Fprintf(&b, "  %d) %s %3d mana  %s\n", a.Index+1, telnet.PadRight(a.Name, 18), a.ManaCost, status)
	}
	b.WriteString("\n")

	b.WriteString(telnet.Colorize(telnet.Bold, "Battle log"))
	b.WriteString("\n")
	for _, e := range recent {
		fmt.Fprintf(&b, "  %s\n", eventColor(e))
	}
	if notice != "" {
		b.WriteString("\n")
		b.WriteString(telnet.Colorize(telnet.BrightRed, notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(telnet.Colorize(telnet.Dim, "t <n> target  <n> ability  a attack  f flee  ? help"))
	b.WriteString("\n> ")
	return b.String()
}

func eventColor(e combat.Event) string {
	switch e.Kind {
	case combat.EventDefeated, combat.EventVictory:
		return telnet.Colorize(telnet.BrightGreen, e.Text)
	case combat.EventHeal:
		return telnet.Colorize(telnet.Green, e.Text)
	case combat.EventDefeat, combat.EventTimeout, combat.EventFled:
		return telnet.Colorize(telnet.BrightRed, e.Text)
	default:
		return e.Text
	}
}

// RenderResults draws the end-of-battle summary.
func RenderResults(o combat.Outcome, hero string, interval time.Duration) string {
	var b strings.Builder
	var title string
	switch {
	case o.Phase == combat.PhaseVictory:
		title = telnet.Colorize(telnet.Bold+telnet.BrightGreen, "VICTORY!")
	case o.Stats.TimedOut:
		title = telnet.Colorize(telnet.Bold+telnet.BrightRed, "TIME'S UP! DEFEAT")
	case o.Stats.Fled:
		title = telnet.Colorize(telnet.Bold+telnet.BrightRed, "YOU FLED. DEFEAT")
	default:
		title = telnet.Colorize(telnet.Bold+telnet.BrightRed, "DEFEAT")
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	s := o.Stats
	fmt.Fprintf(&b, "  Hero:             %s\n", hero)
	fmt.Fprintf(&b, "  Time:             %s\n", Clock(s.ElapsedTicks, interval))
	fmt.Fprintf(&b, "  Enemies defeated: %d/%d\n", s.EnemiesDefeated, s.EnemyCount)
	fmt.Fprintf(&b, "  Damage dealt:     %d\n", s.DamageDealt)
	fmt.Fprintf(&b, "  Damage taken:     %d\n", s.DamageTaken)
	fmt.Fprintf(&b, "  Healing:          %d\n", s.HealingDone)
	if s.CriticalHits > 0 {
		fmt.Fprintf(&b, "  Critical hits:    %d\n", s.CriticalHits)
	}
	fmt.Fprintf(&b, "  Rating:           %s\n\n", ratingColor(s.Rating()))
	b.WriteString("[a] play again  [m] menu  [q] quit\n> ")
	return b.String()
}

func ratingColor(r string) string {
	switch r {
	case "Excellent":
		return telnet.Colorize(telnet.BrightGreen, r)
	case "Good":
		return telnet.Colorize(telnet.BrightYellow, r)
	default:
		return telnet.Colorize(telnet.Red, r)
	}
}

// RenderLeaderboard draws the top players.
func RenderLeaderboard(rows []storage.Standing) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightYellow, "Leaderboard"))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString("  No battles fought yet.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  %-4s %-20s %4s %4s %6s\n", "#", "Player", "W", "L", "Kills")
	for i, r := range rows {
		fmt.Fprintf(&b, "  %-4d %-20s %4d %4d %6d\n", i+1, r.Owner, r.Victories, r.Defeats, r.EnemiesDefeated)
	}
	return b.String()
}

// RenderHistory draws a player's recent battles.
func RenderHistory(reports []storage.Report) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightYellow, "Recent battles"))
	b.WriteString("\n")
	if len(reports) == 0 {
		b.WriteString("  No battles fought yet.\n")
		return b.String()
	}
	for _, r := range reports {
		result := telnet.Colorize(telnet.Red, "defeat ")
		if r.Victory {
			result = telnet.Colorize(telnet.Green, "victory")
		}
		fmt.Fprintf(&b, "  %s  %-18s %-12s %d/%d  %s\n", result, r.Hero, r.Encounter, r.EnemiesDefeated, r.EnemyCount, r.Rating)
	}
	return b.String()
}
