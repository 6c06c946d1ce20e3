// Package arena is the application service every front end talks to. It ties
// the content catalog, the combat engine, and persistence together.
package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/storage"
)

var (
	// ErrNotOwner is returned when an account acts on another account's battle.
	ErrNotOwner = errors.New("battle belongs to another player")
	// ErrUnknownAction is returned for an Action with an unrecognised kind.
	ErrUnknownAction = errors.New("unknown action")
	// ErrRealtimeBattle is returned for a tick action on a battle driven by
	// the server clock.
	ErrRealtimeBattle = errors.New("battle runs in real time")
	// ErrTooManyTicks is returned for a tick action above MaxTicksPerAction.
	ErrTooManyTicks = fmt.Errorf("at most %d ticks per action", MaxTicksPerAction)
	// ErrInvalidUsername is returned by Register for a malformed username.
	ErrInvalidUsername = errors.New("username must be 3-32 letters, digits, '-' or '_'")
	// ErrInvalidPassword is returned by Register for a too-short password.
	ErrInvalidPassword = errors.New("password must be at least 6 characters")
)

// DefaultRetention is how long a finished battle stays queryable.
const DefaultRetention = 5 * time.Minute

// RulesFromConfig converts the combat config section into simulator rules.
//
// Postcondition: the returned Rules pass Validate when cfg passed config validation.
func RulesFromConfig(cfg config.CombatConfig) combat.Rules {
	return combat.Rules{
		AITurnEvery:     cfg.AITurnEvery,
		HeroManaRegen:   cfg.HeroManaRegen,
		EnemyManaRegen:  cfg.EnemyManaRegen,
		AbilityVariance: cfg.AbilityVariance,
		EnemyVariance:   cfg.EnemyVariance,
		TimeLimitTicks:  cfg.TimeLimitTicks,
		LogCapacity:     cfg.LogCapacity,
		CritChance:      cfg.CritChance,
		CritMultiplier:  cfg.CritMultiplier,
	}
}

// Config wires a Service.
type Config struct {
	Catalog  *catalog.Store
	Engine   *combat.Engine
	Accounts storage.AccountStore
	Reports  storage.ReportStore
	Logger   *zap.Logger
	// Retention is how long a finished battle remains in the engine before it
	// is discarded; zero uses DefaultRetention.
	Retention time.Duration
}

type battleMeta struct {
	hero      string
	encounter string
}

// Service is safe for concurrent use.
type Service struct {
	cfg Config

	tokens *Tokens

	mu      sync.Mutex
	battles map[string]battleMeta
	timers  map[string]*time.Timer
	closed  bool
}

// New returns a Service and registers its outcome recorder with the engine.
//
// Precondition: every Config field except Retention must be non-nil.
func New(cfg Config) *Service {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	s := &Service{
		cfg:     cfg,
		tokens:  NewTokens(),
		battles: make(map[string]battleMeta),
		timers:  make(map[string]*time.Timer),
	}
	cfg.Engine.OnOutcome(s.record)
	return s
}

// Catalog returns the current content catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.cfg.Catalog.Current() }

// Tokens returns the bearer token table shared by the network front ends.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Rules returns the rules new battles use.
func (s *Service) Rules() combat.Rules { return s.cfg.Engine.Rules() }

// Register creates an account.
//
// Postcondition: Returns the account, ErrInvalidUsername, ErrInvalidPassword
// or storage.ErrAccountExists.
func (s *Service) Register(ctx context.Context, username, password string) (storage.Account, error) {
	username = strings.TrimSpace(username)
	if !validUsername(username) {
		return storage.Account{}, ErrInvalidUsername
	}
	if len(password) < 6 {
		return storage.Account{}, ErrInvalidPassword
	}
	acct, err := s.cfg.Accounts.Create(ctx, username, password)
	if err != nil {
		return storage.Account{}, err
	}
	s.cfg.Logger.Info("account created", zap.String("username", acct.Username))
	return acct, nil
}

// Login authenticates an account.
func (s *Service) Login(ctx context.Context, username, password string) (storage.Account, error) {
	return s.cfg.Accounts.Authenticate(ctx, strings.TrimSpace(username), password)
}

func validUsername(name string) bool {
	if len(name) < 3 || len(name) > 32 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// StartBattle builds heroID vs encounterID from the catalog and starts it.
//
// Postcondition: Returns the live session, or catalog.ErrHeroNotFound /
// catalog.ErrEncounterNotFound.
func (s *Service) StartBattle(owner, heroID, encounterID string, realtime bool) (*combat.Session, error) {
	hero, enemies, err := s.Catalog().Battle(heroID, encounterID)
	if err != nil {
		return nil, err
	}
	sess, err := s.cfg.Engine.Start(hero, enemies, combat.StartOptions{Owner: owner, Realtime: realtime, Hold: true})
	if err != nil {
		return nil, fmt.Errorf("starting battle: %w", err)
	}
	s.mu.Lock()
	s.battles[sess.ID()] = battleMeta{hero: heroID, encounter: encounterID}
	s.mu.Unlock()
	// The outcome hook needs the metadata, so ticking starts only now.
	if err := s.cfg.Engine.Drive(sess.ID()); err != nil {
		return nil, fmt.Errorf("driving battle: %w", err)
	}
	return sess, nil
}

// Battle returns owner's session id. An empty owner skips the ownership check.
func (s *Service) Battle(owner, id string) (*combat.Session, error) {
	sess, err := s.cfg.Engine.Get(id)
	if err != nil {
		return nil, err
	}
	if owner != "" && sess.Owner() != owner {
		return nil, ErrNotOwner
	}
	return sess, nil
}

// EndBattle discards a battle; an ongoing one is recorded as fled.
func (s *Service) EndBattle(owner, id string) error {
	if _, err := s.Battle(owner, id); err != nil {
		return err
	}
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	return s.cfg.Engine.End(id)
}

// Leaderboard returns the top limit players.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]storage.Standing, error) {
	return s.cfg.Reports.Leaderboard(ctx, limit)
}

// History returns owner's most recent battle reports.
func (s *Service) History(ctx context.Context, owner string, limit int) ([]storage.Report, error) {
	return s.cfg.Reports.ListByOwner(ctx, owner, limit)
}

// Close ends every battle and cancels pending retention timers.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.cfg.Engine.StopAll()
}

// record persists a finished battle and schedules its removal.
func (s *Service) record(sess *combat.Session, o combat.Outcome) {
	s.mu.Lock()
	meta, ok := s.battles[sess.ID()]
	delete(s.battles, sess.ID())
	if ok && !s.closed {
		id := sess.ID()
		s.timers[id] = time.AfterFunc(s.cfg.Retention, func() {
			s.mu.Lock()
			delete(s.timers, id)
			s.mu.Unlock()
			_ = s.cfg.Engine.End(id)
		})
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	snap := sess.Snapshot()
	rep := storage.Report{
		SessionID:       sess.ID(),
		Owner:           sess.Owner(),
		Hero:            snap.Hero.Name,
		Encounter:       meta.encounter,
		Victory:         o.Phase == combat.PhaseVictory,
		ElapsedTicks:    o.Stats.ElapsedTicks,
		EnemiesDefeated: o.Stats.EnemiesDefeated,
		EnemyCount:      o.Stats.EnemyCount,
		DamageDealt:     o.Stats.DamageDealt,
		DamageTaken:     o.Stats.DamageTaken,
		HealingDone:     o.Stats.HealingDone,
		CriticalHits:    o.Stats.CriticalHits,
		TimedOut:        o.Stats.TimedOut,
		Fled:            o.Stats.Fled,
		Rating:          o.Stats.Rating(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.cfg.Reports.Save(ctx, rep); err != nil {
		s.cfg.Logger.Error("saving battle report", zap.String("session", sess.ID()), zap.Error(err))
		return
	}
	s.cfg.Logger.Info("battle recorded",
		zap.String("session", sess.ID()),
		zap.String("owner", rep.Owner),
		zap.String("hero", meta.hero),
		zap.String("encounter", meta.encounter),
		zap.Stringer("phase", o.Phase),
		zap.String("rating", rep.Rating),
	)
}
