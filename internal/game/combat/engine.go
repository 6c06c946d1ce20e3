package combat

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// ErrSessionNotFound is returned for an unknown or already ended session id.
var ErrSessionNotFound = errors.New("session not found")

// EngineConfig configures an Engine.
type EngineConfig struct {
	Rules Rules
	// TickInterval is the real-time length of one tick for driven sessions.
	TickInterval time.Duration
	Source       dice.Source
	// Policy picks enemy abilities; nil uses RandomPolicy over Source.
	Policy EnemyPolicy
	Logger *zap.Logger
}

// StartOptions controls a single session.
type StartOptions struct {
	// Owner is the account name recorded with the outcome.
	Owner string
	// Realtime attaches a Driver that advances the session every TickInterval.
	// Without it the host drives time through Advance.
	Realtime bool
	// Hold registers a Realtime session without starting its Driver; Drive
	// starts it. Hosts use it to record the session before the first tick.
	Hold bool
}

type liveSession struct {
	session *Session
	driver  *Driver
}

// Engine owns every live session, keyed by UUID. All methods are safe for
// concurrent use.
type Engine struct {
	cfg    EngineConfig
	roller *dice.Roller

	mu       sync.RWMutex
	sessions map[string]*liveSession
	hooks    []func(*Session, Outcome)
}

// NewEngine returns an empty Engine.
//
// Precondition: cfg.Source and cfg.Logger must be non-nil; cfg.Rules must be valid.
// Postcondition: Returns a non-nil Engine ready for use.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Engine{
		cfg:      cfg,
		roller:   dice.NewLoggedRoller(cfg.Source, cfg.Logger.Named("dice")),
		sessions: make(map[string]*liveSession),
	}
}

// Rules returns the rules every new session uses.
func (e *Engine) Rules() Rules { return e.cfg.Rules }

// OnOutcome registers fn to run when any session ends. Hooks run outside the
// session lock, in registration order, possibly on a driver goroutine, so fn
// must not call End.
func (e *Engine) OnOutcome(fn func(*Session, Outcome)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Start creates a session for hero against enemies.
//
// Precondition: enemies is non-empty; participant ids are unique.
// Postcondition: Returns the new session, already registered and, for
// Realtime sessions without Hold, being driven.
func (e *Engine) Start(hero Participant, enemies []Participant, opts StartOptions) (*Session, error) {
	id := uuid.NewString()
	s, err := NewSession(SessionConfig{
		ID:       id,
		Owner:    opts.Owner,
		Hero:     hero,
		Enemies:  enemies,
		Rules:    e.cfg.Rules,
		Roller:   e.roller,
		Realtime: opts.Realtime,
		Policy:   e.cfg.Policy,
		Logger:   e.cfg.Logger,
		OnEnd:    e.dispatch,
	})
	if err != nil {
		return nil, err
	}

	ls := &liveSession{session: s}
	if opts.Realtime {
		ls.driver = NewDriver(s, e.cfg.TickInterval)
	}

	e.mu.Lock()
	e.sessions[id] = ls
	e.mu.Unlock()

	if ls.driver != nil && !opts.Hold {
		ls.driver.Start()
	}
	e.cfg.Logger.Info("battle started",
		zap.String("session", id),
		zap.String("owner", opts.Owner),
		zap.String("hero", hero.Name),
		zap.Int("enemies", len(enemies)),
		zap.Bool("realtime", opts.Realtime),
	)
	return s, nil
}

// Get returns the live session with id.
func (e *Engine) Get(id string) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ls, ok := e.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ls.session, nil
}

// Drive starts the Driver of a session started with Hold. It has no effect
// on a session that is already driven or not Realtime.
func (e *Engine) Drive(id string) error {
	e.mu.RLock()
	ls, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	if ls.driver != nil {
		ls.driver.Start()
	}
	return nil
}

// End stops the session's driver and discards it. An ongoing battle is
// recorded as fled.
func (e *Engine) End(id string) error {
	e.mu.Lock()
	ls, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if ls.driver != nil {
		ls.driver.Stop()
	}
	if err := ls.session.Flee(); err != nil && !errors.Is(err, ErrBattleOver) {
		return err
	}
	return nil
}

// Len returns the number of live sessions.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// StopAll ends every live session.
//
// Postcondition: Len() == 0 and no driver goroutine is running.
func (e *Engine) StopAll() {
	e.mu.RLock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	for _, id := range ids {
		_ = e.End(id)
	}
}

func (e *Engine) dispatch(s *Session, o Outcome) {
	e.mu.RLock()
	hooks := slices.Clone(e.hooks)
	e.mu.RUnlock()
	for _, fn := range hooks {
		fn(s, o)
	}
}
