package combat

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// subscriberBuffer is the number of updates a slow subscriber may lag behind
// before updates are dropped for it.
const subscriberBuffer = 32

// SessionConfig describes a battle to start.
type SessionConfig struct {
	ID      string
	Owner   string
	Hero    Participant
	Enemies []Participant
	Rules   Rules
	Roller  *dice.Roller
	// Realtime marks a session advanced by a Driver rather than by its host.
	Realtime bool
	// Policy picks enemy abilities; nil uses RandomPolicy over the roller.
	Policy EnemyPolicy
	Logger *zap.Logger
	// OnEnd is called once, outside the session lock, when the battle ends.
	OnEnd func(*Session, Outcome)
}

// Session is one battle. All methods are safe for concurrent use; every
// operation is applied atomically under the session lock.
type Session struct {
	id       string
	owner    string
	realtime bool
	rules    Rules
	roller   *dice.Roller
	policy   EnemyPolicy
	logger   *zap.Logger
	onEnd    func(*Session, Outcome)

	mu       sync.Mutex
	hero     *Participant
	enemies  []*Participant
	byID     map[string]*Participant
	tick     int
	phase    Phase
	selected string
	log      *eventLog
	stats    Stats
	pending  []Event
	// dirty marks a state change with no event, such as a tick or a new target.
	dirty   bool
	subs    map[int]chan Update
	nextSub int
}

// NewSession validates cfg and returns a session in the ongoing phase.
//
// Precondition: cfg.Roller and cfg.Logger must be non-nil.
// Postcondition: Returns a session whose participants are copies of the
// templates in cfg, or an error describing the first invalid input.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Enemies) == 0 {
		return nil, errors.New("session: at least one enemy is required")
	}
	if cfg.Roller == nil || cfg.Logger == nil {
		return nil, errors.New("session: roller and logger are required")
	}

	s := &Session{
		id:       cfg.ID,
		owner:    cfg.Owner,
		realtime: cfg.Realtime,
		rules:    cfg.Rules,
		roller:   cfg.Roller,
		policy:   cfg.Policy,
		logger:   cfg.Logger.With(zap.String("session", cfg.ID)),
		onEnd:    cfg.OnEnd,
		byID:     make(map[string]*Participant, len(cfg.Enemies)+1),
		log:      newEventLog(cfg.Rules.LogCapacity),
		subs:     make(map[int]chan Update),
	}
	if s.policy == nil {
		s.policy = RandomPolicy{Src: cfg.Roller}
	}

	add := func(tmpl Participant, side Side) (*Participant, error) {
		tmpl.Side = side
		if err := tmpl.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.byID[tmpl.ID]; dup {
			return nil, fmt.Errorf("session: duplicate participant id %q", tmpl.ID)
		}
		p := tmpl.clone()
		s.byID[p.ID] = p
		return p, nil
	}

	hero, err := add(cfg.Hero, SideHero)
	if err != nil {
		return nil, err
	}
	s.hero = hero
	for _, e := range cfg.Enemies {
		p, err := add(e, SideEnemy)
		if err != nil {
			return nil, err
		}
		s.enemies = append(s.enemies, p)
	}
	s.stats.EnemyCount = len(s.enemies)

	s.emit(Event{Kind: EventStart, ActorID: hero.ID,
		Text: fmt.Sprintf("The battle begins! %s faces %d enemies.", hero.Name, len(s.enemies))})
	s.pending = nil
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the account that started the session, if any.
func (s *Session) Owner() string { return s.owner }

// Realtime reports whether the session runs on the server clock.
func (s *Session) Realtime() bool { return s.realtime }

// HeroID returns the hero's participant id.
func (s *Session) HeroID() string { return s.hero.ID }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Tick advances simulated time by one tick: every nonzero cooldown drops by
// one and every living participant regenerates its side's mana. No-op once
// the battle is over.
func (s *Session) Tick() {
	s.mu.Lock()
	if !s.phase.Terminal() {
		s.tickLocked()
	}
	done := s.finishLocked()
	s.mu.Unlock()
	done()
}

// UseAbility resolves ability index idx of casterID. targetID may be empty, in
// which case the hero's selected target (or, for enemies, the hero) is used.
//
// Postcondition: On error no state has changed.
func (s *Session) UseAbility(casterID string, idx int, targetID string) error {
	s.mu.Lock()
	err := s.useAbilityLocked(casterID, idx, targetID)
	done := s.finishLocked()
	s.mu.Unlock()
	done()
	return err
}

// BasicAttack resolves attackerID's basic attack dice against targetID, or the
// selected target when targetID is empty. It costs no mana and has no cooldown.
//
// Postcondition: On error no state has changed.
func (s *Session) BasicAttack(attackerID, targetID string) error {
	s.mu.Lock()
	err := s.basicAttackLocked(attackerID, targetID)
	done := s.finishLocked()
	s.mu.Unlock()
	done()
	return err
}

// SelectTarget records id as the hero's current target.
//
// Precondition: id names a living enemy.
func (s *Session) SelectTarget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrBattleOver
	}
	p, ok := s.byID[id]
	if !ok {
		return ErrUnknownParticipant
	}
	if p.Side == s.hero.Side || !p.Alive() {
		return ErrInvalidTarget
	}
	if s.selected != id {
		s.selected = id
		s.dirty = true
		// selecting a target cannot end the battle, so the end hook is a no-op
		s.finishLocked()
	}
	return nil
}

// SelectedTarget returns the selected enemy id, or "" if none.
func (s *Session) SelectedTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// CheckOutcome evaluates and returns the phase. Defeat takes priority when the
// hero and the last enemy fall together. A terminal phase never reverts.
func (s *Session) CheckOutcome() Phase {
	s.mu.Lock()
	done := s.finishLocked()
	phase := s.phase
	s.mu.Unlock()
	done()
	return phase
}

// EnemyTurn lets one uniformly chosen living enemy use an ability picked by
// the policy. The turn is skipped when that enemy has nothing usable.
func (s *Session) EnemyTurn() {
	s.mu.Lock()
	if !s.phase.Terminal() {
		s.enemyTurnLocked()
	}
	done := s.finishLocked()
	s.mu.Unlock()
	done()
}

// Advance runs n ticks, with an enemy turn after every AITurnEvery-th tick,
// stopping early once the battle is over. It returns the ticks actually run.
func (s *Session) Advance(n int) int {
	s.mu.Lock()
	ran := 0
	for ; ran < n && !s.phase.Terminal(); ran++ {
		s.tickLocked()
		if !s.phase.Terminal() && s.tick%s.rules.AITurnEvery == 0 {
			s.enemyTurnLocked()
			s.evaluateLocked()
		}
	}
	done := s.finishLocked()
	s.mu.Unlock()
	done()
	return ran
}

// Flee abandons the battle. It is recorded as a defeat.
func (s *Session) Flee() error {
	s.mu.Lock()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return ErrBattleOver
	}
	s.stats.Fled = true
	s.emit(Event{Kind: EventFled, ActorID: s.hero.ID, Text: fmt.Sprintf("%s fled the battle.", s.hero.Name)})
	s.endLocked(PhaseDefeat)
	done := s.finishLocked()
	s.mu.Unlock()
	done()
	return nil
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Outcome returns the terminal outcome and true, or false while ongoing.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.phase.Terminal() {
		return Outcome{}, false
	}
	return Outcome{Phase: s.phase, Stats: s.stats}, true
}

// Log returns up to n of the most recent events, oldest first; n <= 0 returns
// everything retained.
func (s *Session) Log(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.tail(n)
}

// EventsSince returns retained events with a sequence number greater than seq.
func (s *Session) EventsSince(seq uint64) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.since(seq)
}

// Subscribe returns a channel of updates and a cancel function. The first
// update carries the current snapshot. The channel is closed when the battle
// ends or cancel is called. A subscriber that falls behind misses updates and
// can recover with Snapshot and EventsSince.
func (s *Session) Subscribe() (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	ch <- Update{Snapshot: s.snapshotLocked()}
	if s.phase.Terminal() {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) tickLocked() {
	s.tick++
	s.dirty = true
	s.stats.ElapsedTicks = s.tick
	for _, p := range s.all() {
		p.decayCooldowns()
		if !p.Alive() {
			continue
		}
		if p.Side == SideHero {
			p.regenerate(s.rules.HeroManaRegen)
		} else {
			p.regenerate(s.rules.EnemyManaRegen)
		}
	}
	if s.rules.TimeLimitTicks > 0 && s.tick >= s.rules.TimeLimitTicks {
		s.stats.TimedOut = true
		s.emit(Event{Kind: EventTimeout, Text: "Time is up!"})
		s.endLocked(PhaseDefeat)
	}
}

func (s *Session) useAbilityLocked(casterID string, idx int, targetID string) error {
	if s.phase.Terminal() {
		return ErrBattleOver
	}
	caster, ok := s.byID[casterID]
	if !ok {
		return ErrUnknownParticipant
	}
	if !caster.Alive() {
		return ErrActorDefeated
	}
	if err := caster.canUse(idx); err != nil {
		return err
	}
	ability := caster.Abilities[idx]

	var target *Participant
	if ability.Offensive() {
		t, err := s.resolveTarget(caster, targetID)
		if err != nil {
			return err
		}
		target = t
	}

	caster.Mana -= ability.ManaCost
	caster.Cooldowns[idx] = ability.Cooldown
	if caster.Side == SideHero {
		s.stats.AbilitiesUsed++
	}

	if target != nil {
		width := s.rules.AbilityVariance
		if caster.Side == SideEnemy {
			width = s.rules.EnemyVariance
		}
		amount := max(ability.Damage+s.roller.Variance(width), 1)
		s.strike(caster, target, amount, ability.Name)
	}
	if ability.Healing > 0 {
		gained := caster.heal(ability.Healing)
		if caster.Side == SideHero {
			s.stats.HealingDone += gained
		}
		s.emit(Event{Kind: EventHeal, ActorID: caster.ID, TargetID: caster.ID, Ability: ability.Name, Amount: gained,
			Text: fmt.Sprintf("%s used %s and healed for %d!", caster.Name, ability.Name, gained)})
	}
	if target == nil && ability.Healing == 0 {
		s.emit(Event{Kind: EventUsed, ActorID: caster.ID, Ability: ability.Name,
			Text: fmt.Sprintf("%s used %s!", caster.Name, ability.Name)})
	}
	return nil
}

func (s *Session) basicAttackLocked(attackerID, targetID string) error {
	if s.phase.Terminal() {
		return ErrBattleOver
	}
	attacker, ok := s.byID[attackerID]
	if !ok {
		return ErrUnknownParticipant
	}
	if !attacker.Alive() {
		return ErrActorDefeated
	}
	target, err := s.resolveTarget(attacker, targetID)
	if err != nil {
		return err
	}
	if attacker.Side == SideHero {
		s.stats.BasicAttacks++
	}
	amount := max(s.roller.Roll(attacker.BasicAttack).Total, 1)
	s.strike(attacker, target, amount, "")
	return nil
}

// resolveTarget finds the living opposing participant an action aims at.
func (s *Session) resolveTarget(actor *Participant, targetID string) (*Participant, error) {
	if targetID == "" {
		if actor.Side == SideEnemy {
			targetID = s.hero.ID
		} else {
			targetID = s.selected
		}
	}
	if targetID == "" {
		return nil, ErrNoTarget
	}
	target, ok := s.byID[targetID]
	if !ok {
		return nil, ErrUnknownParticipant
	}
	if target.Side == actor.Side || !target.Alive() {
		return nil, ErrInvalidTarget
	}
	return target, nil
}

// critical rolls for a critical hit. No roll is drawn while critical hits are
// disabled, so rule sets without them keep their roll sequence.
func (s *Session) critical(amount int) (int, bool) {
	if s.rules.CritChance <= 0 || s.roller.Intn(100) >= s.rules.CritChance {
		return amount, false
	}
	return int(math.Round(float64(amount) * s.rules.CritMultiplier)), true
}

// strike applies amount to target and logs a hit or a defeat. ability is ""
// for basic attacks.
func (s *Session) strike(actor, target *Participant, amount int, ability string) {
	amount, crit := s.critical(amount)
	lost := target.takeDamage(amount)
	switch {
	case actor.Side == SideHero:
		s.stats.DamageDealt += lost
		if crit {
			s.stats.CriticalHits++
		}
	case target.Side == SideHero:
		s.stats.DamageTaken += lost
	}

	e := Event{ActorID: actor.ID, TargetID: target.ID, Ability: ability, Amount: lost, Critical: crit}
	if !target.Alive() {
		e.Kind = EventDefeated
		if ability != "" {
			e.Text = fmt.Sprintf("%s defeated %s with %s!", actor.Name, target.Name, ability)
		} else {
			e.Text = fmt.Sprintf("%s defeated %s!", actor.Name, target.Name)
		}
		if target.Side == SideEnemy {
			s.stats.EnemiesDefeated++
		}
		if s.selected == target.ID {
			s.selected = ""
		}
	} else {
		e.Kind = EventHit
		if ability != "" {
			e.Text = fmt.Sprintf("%s used %s on %s for %d damage!", actor.Name, ability, target.Name, lost)
		} else {
			e.Text = fmt.Sprintf("%s attacks %s for %d damage!", actor.Name, target.Name, lost)
		}
	}
	if crit {
		e.Text = "Critical hit! " + e.Text
	}
	s.emit(e)
}

func (s *Session) enemyTurnLocked() {
	var living []*Participant
	for _, e := range s.enemies {
		if e.Alive() {
			living = append(living, e)
		}
	}
	if len(living) == 0 {
		return
	}
	enemy := living[s.roller.Intn(len(living))]
	usable := enemy.usable()
	if len(usable) == 0 {
		return
	}
	idx := s.policy.ChooseAbility(stateOf(enemy), stateOf(s.hero), usable)
	if idx < 0 {
		return
	}
	if err := s.useAbilityLocked(enemy.ID, idx, ""); err != nil {
		s.logger.Debug("enemy turn skipped",
			zap.String("enemy", enemy.ID),
			zap.Int("ability", idx),
			zap.Error(err),
		)
	}
}

// evaluateLocked applies the outcome rules: defeat if the hero is down, else
// victory if every enemy is down.
func (s *Session) evaluateLocked() {
	if s.phase.Terminal() {
		return
	}
	if !s.hero.Alive() {
		s.emit(Event{Kind: EventDefeat, ActorID: s.hero.ID, Text: fmt.Sprintf("%s has fallen. Defeat!", s.hero.Name)})
		s.endLocked(PhaseDefeat)
		return
	}
	for _, e := range s.enemies {
		if e.Alive() {
			return
		}
	}
	s.emit(Event{Kind: EventVictory, ActorID: s.hero.ID, Text: "All enemies defeated. Victory!"})
	s.endLocked(PhaseVictory)
}

func (s *Session) endLocked(phase Phase) {
	s.phase = phase
	s.selected = ""
	s.logger.Info("battle ended",
		zap.String("phase", phase.String()),
		zap.Int("ticks", s.tick),
		zap.Int("enemies_defeated", s.stats.EnemiesDefeated),
		zap.Bool("timed_out", s.stats.TimedOut),
		zap.Bool("fled", s.stats.Fled),
	)
}

// finishLocked runs after every operation: it checks invariants, evaluates
// the outcome, publishes pending events and returns the end hook to run once
// the lock is released.
func (s *Session) finishLocked() func() {
	for _, p := range s.all() {
		p.assertInvariants()
	}
	s.evaluateLocked()

	if len(s.pending) == 0 && !s.dirty {
		return func() {}
	}
	update := Update{Snapshot: s.snapshotLocked(), Events: s.pending}
	s.pending = nil
	s.dirty = false
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
		}
	}

	if !s.phase.Terminal() {
		return func() {}
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	outcome := Outcome{Phase: s.phase, Stats: s.stats}
	hook := s.onEnd
	s.onEnd = nil
	if hook == nil {
		return func() {}
	}
	return func() { hook(s, outcome) }
}

func (s *Session) emit(e Event) {
	e.Tick = s.tick
	s.pending = append(s.pending, s.log.append(e))
}

func (s *Session) all() []*Participant {
	out := make([]*Participant, 0, len(s.enemies)+1)
	out = append(out, s.hero)
	return append(out, s.enemies...)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:             s.id,
		Owner:          s.owner,
		Tick:           s.tick,
		Phase:          s.phase,
		SelectedTarget: s.selected,
		Hero:           stateOf(s.hero),
		Enemies:        make([]ParticipantState, len(s.enemies)),
		Stats:          s.stats,
		LastSeq:        s.log.lastSeq,
	}
	for i, e := range s.enemies {
		snap.Enemies[i] = stateOf(e)
	}
	if s.rules.TimeLimitTicks > 0 {
		snap.TicksRemaining = max(s.rules.TimeLimitTicks-s.tick, 0)
	}
	return snap
}
