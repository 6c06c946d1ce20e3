package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/combat"
)

var (
	errShowHelp = errors.New("help requested")
	errNoInput  = errors.New("empty input")
)

const battleHelp = `Commands:
  <n>               use ability n on the selected target
  use <n> [enemy]   use ability n, optionally on enemy number or id
  attack [enemy]    basic attack (also: a)
  target <enemy>    select a target (also: t)
  flee              abandon the battle (also: f)
  ?                 show this help`

// parseBattleCommand turns one line of input into a hero action. Enemy
// references are 1-based positions on the battle screen or participant ids.
func parseBattleCommand(line string, snap combat.Snapshot) (arena.Action, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return arena.Action{}, errNoInput
	}
	cmd, args := fields[0], fields[1:]

	if n, err := strconv.Atoi(cmd); err == nil {
		target, err := optionalTarget(args, snap)
		if err != nil {
			return arena.Action{}, err
		}
		return arena.Action{Kind: arena.ActionAbility, Ability: n - 1, Target: target}, nil
	}

	switch cmd {
	case "use", "u", "cast":
		if len(args) == 0 {
			return arena.Action{}, errors.New("usage: use <ability number> [enemy]")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return arena.Action{}, fmt.Errorf("%q is not an ability number", args[0])
		}
		target, err := optionalTarget(args[1:], snap)
		if err != nil {
			return arena.Action{}, err
		}
		return arena.Action{Kind: arena.ActionAbility, Ability: n - 1, Target: target}, nil
	case "attack", "a":
		target, err := optionalTarget(args, snap)
		if err != nil {
			return arena.Action{}, err
		}
		return arena.Action{Kind: arena.ActionAttack, Target: target}, nil
	case "target", "t":
		if len(args) == 0 {
			return arena.Action{}, errors.New("usage: target <enemy>")
		}
		target, err := resolveEnemy(args[0], snap)
		if err != nil {
			return arena.Action{}, err
		}
		return arena.Action{Kind: arena.ActionTarget, Target: target}, nil
	case "flee", "f":
		return arena.Action{Kind: arena.ActionFlee}, nil
	case "help", "?", "h":
		return arena.Action{}, errShowHelp
	default:
		return arena.Action{}, fmt.Errorf("unknown command %q; type ? for help", cmd)
	}
}

func optionalTarget(args []string, snap combat.Snapshot) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	return resolveEnemy(args[0], snap)
}

func resolveEnemy(ref string, snap combat.Snapshot) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(snap.Enemies) {
			return "", fmt.Errorf("there is no enemy %d", n)
		}
		return snap.Enemies[n-1].ID, nil
	}
	return ref, nil
}

// describeError turns a rejected action into a player-facing notice.
func describeError(err error) string {
	switch {
	case errors.Is(err, combat.ErrOnCooldown):
		return "That ability is still on cooldown."
	case errors.Is(err, combat.ErrInsufficientMana):
		return "Not enough mana."
	case errors.Is(err, combat.ErrNoTarget):
		return "Select a target first (t <n>)."
	case errors.Is(err, combat.ErrInvalidTarget):
		return "You can't target that."
	case errors.Is(err, combat.ErrUnknownParticipant):
		return "No such enemy."
	case errors.Is(err, combat.ErrUnknownAbility):
		return "No such ability."
	case errors.Is(err, combat.ErrBattleOver):
		return "The battle is over."
	case errors.Is(err, combat.ErrActorDefeated):
		return "You have fallen."
	default:
		return err.Error()
	}
}
