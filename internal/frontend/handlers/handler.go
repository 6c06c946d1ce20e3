// Package handlers implements the arena's Telnet screens: login, the main
// menu, hero and encounter selection, the live battle and its results.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/frontend/telnet"
	"github.com/cory-johannsen/arena/internal/storage"
)

const welcomeBanner = telnet.Bold + telnet.BrightYellow + `
   ___                        
  / _ | _______ ___  ___ _    
 / __ |/ __/ -_) _ \/ _ ` + "`" + `/    
/_/ |_/_/  \__/_//_/\_,_/     
` + telnet.Reset + `
  Pick a hero. Defeat every enemy before time runs out.

  Type ` + telnet.Green + `login <username> <password>` + telnet.Reset + ` to connect.
  Type ` + telnet.Green + `register <username> <password>` + telnet.Reset + ` to create an account.
  Type ` + telnet.Green + `quit` + telnet.Reset + ` to disconnect.
`

// errQuit ends a session at the player's request.
var errQuit = errors.New("player quit")

// Handler implements telnet.Handler.
type Handler struct {
	arena        *arena.Service
	tickInterval time.Duration
	logger       *zap.Logger
}

// New returns a Handler over svc. tickInterval is only used to show clocks.
//
// Precondition: svc and logger must be non-nil; tickInterval > 0.
func New(svc *arena.Service, tickInterval time.Duration, logger *zap.Logger) *Handler {
	return &Handler{arena: svc, tickInterval: tickInterval, logger: logger}
}

// Serve runs login, then the menu loop until the player quits.
//
// Postcondition: Returns nil on a clean quit.
func (h *Handler) Serve(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.WriteScreen(welcomeBanner); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}
	acct, err := h.authenticate(ctx, conn)
	if errors.Is(err, errQuit) {
		_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
		return nil
	}
	if err != nil {
		return err
	}
	h.logger.Info("player logged in",
		zap.String("remote_addr", addr),
		zap.String("username", acct.Username),
		zap.Duration("login_time", time.Since(start)),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, errs := conn.Lines(ctx)
	p := &player{ctx: ctx, conn: conn, account: acct, lines: lines, errs: errs}

	err = h.menu(p)
	if errors.Is(err, errQuit) {
		_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
		h.logger.Info("client quit",
			zap.String("username", acct.Username),
			zap.Duration("session_duration", time.Since(start)),
		)
		return nil
	}
	if errors.Is(err, context.Canceled) {
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
	}
	return err
}

// player is a logged-in connection whose input arrives through a line pump,
// so battle screens can redraw while waiting for commands.
type player struct {
	ctx     context.Context
	conn    *telnet.Conn
	account storage.Account
	lines   <-chan string
	errs    <-chan error
}

// next blocks for the next trimmed input line.
func (p *player) next() (string, error) {
	select {
	case <-p.ctx.Done():
		return "", p.ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", p.readErr()
		}
		return strings.TrimSpace(line), nil
	}
}

func (p *player) readErr() error {
	if err := <-p.errs; err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return io.EOF
}

func (p *player) prompt(text string) (string, error) {
	if err := p.conn.WritePrompt(text); err != nil {
		return "", fmt.Errorf("writing prompt: %w", err)
	}
	return p.next()
}

// authenticate runs the login loop.
//
// Postcondition: Returns the account, errQuit, or a connection error.
func (h *Handler) authenticate(ctx context.Context, conn *telnet.Conn) (storage.Account, error) {
	for {
		if err := ctx.Err(); err != nil {
			return storage.Account{}, err
		}
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
			return storage.Account{}, fmt.Errorf("writing prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if err != nil {
			return storage.Account{}, fmt.Errorf("reading input: %w", err)
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "quit", "exit":
			return storage.Account{}, errQuit
		case "login":
			if len(args) == 0 {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: login <username> [password]"))
				continue
			}
			password, err := passwordArg(conn, args)
			if err != nil {
				return storage.Account{}, err
			}
			acct, err := h.arena.Login(ctx, args[0], password)
			switch {
			case err == nil:
				_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Welcome back, %s!", acct.Username))
				return acct, nil
			case errors.Is(err, storage.ErrAccountNotFound):
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Account not found. Use 'register' to create one."))
			case errors.Is(err, storage.ErrInvalidCredentials):
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Invalid password."))
			default:
				h.logger.Error("authentication error", zap.Error(err))
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
			}
		case "register":
			if len(args) == 0 {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: register <username> [password]"))
				continue
			}
			password, err := passwordArg(conn, args)
			if err != nil {
				return storage.Account{}, err
			}
			acct, err := h.arena.Register(ctx, args[0], password)
			switch {
			case err == nil:
				_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Account created: %s. You may now 'login'.", acct.Username))
			case errors.Is(err, storage.ErrAccountExists):
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That username is already taken."))
			case errors.Is(err, arena.ErrInvalidUsername), errors.Is(err, arena.ErrInvalidPassword):
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, err.Error()))
			default:
				h.logger.Error("registration error", zap.Error(err))
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
			}
		case "help":
			_ = conn.WriteLine("login <username> [password] | register <username> [password] | quit")
		default:
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command: %s. Type 'help' for available commands.", cmd))
		}
	}
}

// passwordArg takes the password from args or asks for it with echo off.
func passwordArg(conn *telnet.Conn, args []string) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}
	if err := conn.WritePrompt("Password: "); err != nil {
		return "", err
	}
	pw, err := conn.ReadPassword()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}

func (h *Handler) menu(p *player) error {
	for {
		screen := telnet.Colorf(telnet.Bold+telnet.BrightYellow, "Main menu") + "  " +
			telnet.Colorize(telnet.Dim, p.account.Username) + "\n\n" +
			"  1) Fight\n  2) Leaderboard\n  3) Recent battles\n  4) Quit\n\n> "
		if err := p.conn.WriteScreen(screen); err != nil {
			return err
		}
		choice, err := p.next()
		if err != nil {
			return err
		}
		switch strings.ToLower(choice) {
		case "1", "fight", "play":
			if err := h.play(p); err != nil {
				return err
			}
		case "2", "leaderboard":
			rows, err := h.arena.Leaderboard(p.ctx, 10)
			if err != nil {
				h.logger.Error("loading leaderboard", zap.Error(err))
				continue
			}
			if err := h.pause(p, RenderLeaderboard(rows)); err != nil {
				return err
			}
		case "3", "history":
			reports, err := h.arena.History(p.ctx, p.account.Username, 10)
			if err != nil {
				h.logger.Error("loading history", zap.Error(err))
				continue
			}
			if err := h.pause(p, RenderHistory(reports)); err != nil {
				return err
			}
		case "4", "q", "quit", "exit":
			return errQuit
		}
	}
}

func (h *Handler) pause(p *player, screen string) error {
	if err := p.conn.WriteScreen(screen + "\nPress enter to continue."); err != nil {
		return err
	}
	_, err := p.next()
	return err
}

// play selects a hero and an encounter and fights until the player leaves
// the results screen for the menu.
func (h *Handler) play(p *player) error {
	heroID, ok, err := h.chooseHero(p)
	if err != nil || !ok {
		return err
	}
	encID, ok, err := h.chooseEncounter(p)
	if err != nil || !ok {
		return err
	}
	for {
		again, err := h.battle(p, heroID, encID)
		if err != nil || !again {
			return err
		}
	}
}

func (h *Handler) chooseHero(p *player) (string, bool, error) {
	heroes := h.arena.Catalog().Heroes()
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightYellow, "Choose your hero") + "\n\n")
	for i, hero := range heroes {
		fmt.Fprintf(&b, "  %d) %s  %s\n", i+1, telnet.Colorize(telnet.Cyan, hero.Name),
			telnet.Colorf(telnet.Dim, "HP %d  Mana %d", hero.Health, hero.Mana))
		if hero.Description != "" {
			fmt.Fprintf(&b, "     %s\n", hero.Description)
		}
	}
	b.WriteString("\n  b) Back\n\n> ")
	for {
		if err := p.conn.WriteScreen(b.String()); err != nil {
			return "", false, err
		}
		choice, err := p.next()
		if err != nil {
			return "", false, err
		}
		if strings.EqualFold(choice, "b") || strings.EqualFold(choice, "back") {
			return "", false, nil
		}
		if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(heroes) {
			return heroes[n-1].ID, true, nil
		}
		for _, hero := range heroes {
			if strings.EqualFold(choice, hero.ID) {
				return hero.ID, true, nil
			}
		}
	}
}

func (h *Handler) chooseEncounter(p *player) (string, bool, error) {
	encounters := h.arena.Catalog().Encounters()
	if len(encounters) == 1 {
		return encounters[0].ID, true, nil
	}
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightYellow, "Choose an encounter") + "\n\n")
	for i, enc := range encounters {
		fmt.Fprintf(&b, "  %d) %s  %s\n", i+1, telnet.Colorize(telnet.Cyan, enc.Name),
			telnet.Colorf(telnet.Dim, "%d enemies", len(enc.Slots)))
		if enc.Description != "" {
			fmt.Fprintf(&b, "     %s\n", enc.Description)
		}
	}
	b.WriteString("\n  b) Back\n\n> ")
	for {
		if err := p.conn.WriteScreen(b.String()); err != nil {
			return "", false, err
		}
		choice, err := p.next()
		if err != nil {
			return "", false, err
		}
		if strings.EqualFold(choice, "b") || strings.EqualFold(choice, "back") {
			return "", false, nil
		}
		if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(encounters) {
			return encounters[n-1].ID, true, nil
		}
		for _, enc := range encounters {
			if strings.EqualFold(choice, enc.ID) {
				return enc.ID, true, nil
			}
		}
	}
}
