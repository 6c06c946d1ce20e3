package handlers

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/combat"
)

// battle runs one real-time battle and its results screen.
//
// Postcondition: again reports whether the player asked for a rematch.
func (h *Handler) battle(p *player, heroID, encounterID string) (again bool, err error) {
	owner := p.account.Username
	sess, err := h.arena.StartBattle(owner, heroID, encounterID, true)
	if err != nil {
		return false, err
	}
	defer func() {
		if endErr := h.arena.EndBattle(owner, sess.ID()); endErr != nil && !errors.Is(endErr, combat.ErrSessionNotFound) {
			h.logger.Warn("ending battle", zap.String("session", sess.ID()), zap.Error(endErr))
		}
	}()

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	var notice string
	draw := func(snap combat.Snapshot) error {
		return p.conn.WriteScreen(RenderBattle(snap, sess.Log(logLines), notice, h.tickInterval))
	}

	for {
		select {
		case <-p.ctx.Done():
			return false, p.ctx.Err()

		case u, ok := <-updates:
			if !ok {
				return h.results(p, sess)
			}
			if err := draw(u.Snapshot); err != nil {
				return false, err
			}

		case line, ok := <-p.lines:
			if !ok {
				return false, p.readErr()
			}
			snap := sess.Snapshot()
			action, perr := parseBattleCommand(line, snap)
			switch {
			case errors.Is(perr, errNoInput):
				notice = ""
			case errors.Is(perr, errShowHelp):
				notice = battleHelp
			case perr != nil:
				notice = perr.Error()
			default:
				notice = ""
				if aerr := arena.Apply(sess, action); aerr != nil {
					notice = describeError(aerr)
				} else {
					continue
				}
			}
			if err := draw(sess.Snapshot()); err != nil {
				return false, err
			}
		}
	}
}

// results shows the outcome and waits for the player's next choice.
func (h *Handler) results(p *player, sess *combat.Session) (bool, error) {
	outcome, _ := sess.Outcome()
	hero := sess.Snapshot().Hero.Name
	for {
		if err := p.conn.WriteScreen(RenderResults(outcome, hero, h.tickInterval)); err != nil {
			return false, err
		}
		choice, err := p.next()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(choice) {
		case "a", "again", "y":
			return true, nil
		case "m", "menu", "":
			return false, nil
		case "q", "quit":
			return false, errQuit
		}
	}
}
