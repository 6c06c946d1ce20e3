package combat

import "fmt"

// Phase is the battle state machine: ongoing, then exactly one of victory or defeat.
type Phase int

const (
	PhaseOngoing Phase = iota
	PhaseVictory
	PhaseDefeat
)

// String returns "ongoing", "victory" or "defeat".
func (p Phase) String() string {
	switch p {
	case PhaseOngoing:
		return "ongoing"
	case PhaseVictory:
		return "victory"
	case PhaseDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase is victory or defeat.
func (p Phase) Terminal() bool { return p != PhaseOngoing }

// MarshalText renders the phase as its name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a phase name written by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ongoing":
		*p = PhaseOngoing
	case "victory":
		*p = PhaseVictory
	case "defeat":
		*p = PhaseDefeat
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// Stats summarises a battle for results screens and reports.
type Stats struct {
	ElapsedTicks    int  `json:"elapsed_ticks"`
	EnemiesDefeated int  `json:"enemies_defeated"`
	EnemyCount      int  `json:"enemy_count"`
	DamageDealt     int  `json:"damage_dealt"`
	DamageTaken     int  `json:"damage_taken"`
	HealingDone     int  `json:"healing_done"`
	AbilitiesUsed   int  `json:"abilities_used"`
	BasicAttacks    int  `json:"basic_attacks"`
	CriticalHits    int  `json:"critical_hits"`
	TimedOut        bool `json:"timed_out"`
	Fled            bool `json:"fled"`
}

// Rating grades the performance by the share of enemies defeated.
func (s Stats) Rating() string {
	switch {
	case s.EnemyCount > 0 && s.EnemiesDefeated == s.EnemyCount:
		return "Excellent"
	case s.EnemiesDefeated*3 >= s.EnemyCount*2:
		return "Good"
	default:
		return "Needs Improvement"
	}
}

// Outcome is the terminal result delivered to hosts.
type Outcome struct {
	Phase Phase `json:"phase"`
	Stats Stats `json:"stats"`
}

// AbilityState is the read-only view of one ability and its owner's cooldown.
type AbilityState struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ManaCost    int    `json:"mana_cost"`
	Cooldown    int    `json:"cooldown"`
	Remaining   int    `json:"remaining"`
	Damage      int    `json:"damage,omitempty"`
	Healing     int    `json:"healing,omitempty"`
	Ready       bool   `json:"ready"`
}

// ParticipantState is the read-only view of a participant.
type ParticipantState struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Class     string         `json:"class"`
	Side      string         `json:"side"`
	Health    int            `json:"health"`
	MaxHealth int            `json:"max_health"`
	Mana      int            `json:"mana"`
	MaxMana   int            `json:"max_mana"`
	Alive     bool           `json:"alive"`
	Position  Position       `json:"position"`
	AIScript  string         `json:"-"`
	Abilities []AbilityState `json:"abilities"`
}

// Snapshot is a consistent copy of a session's state at one instant.
type Snapshot struct {
	ID             string             `json:"id"`
	Owner          string             `json:"owner,omitempty"`
	Tick           int                `json:"tick"`
	Phase          Phase              `json:"phase"`
	SelectedTarget string             `json:"selected_target,omitempty"`
	Hero           ParticipantState   `json:"hero"`
	Enemies        []ParticipantState `json:"enemies"`
	Stats          Stats              `json:"stats"`
	LastSeq        uint64             `json:"last_seq"`
	TicksRemaining int                `json:"ticks_remaining,omitempty"`
}

// Update is pushed to subscribers after every state change.
type Update struct {
	Snapshot Snapshot `json:"snapshot"`
	Events   []Event  `json:"events"`
}

func stateOf(p *Participant) ParticipantState {
	st := ParticipantState{
		ID:        p.ID,
		Name:      p.Name,
		Class:     p.Class,
		Side:      p.Side.String(),
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Mana:      p.Mana,
		MaxMana:   p.MaxMana,
		Alive:     p.Alive(),
		Position:  p.Position,
		AIScript:  p.AIScript,
		Abilities: make([]AbilityState, len(p.Abilities)),
	}
	for i, a := range p.Abilities {
		st.Abilities[i] = AbilityState{
			Index:       i,
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			ManaCost:    a.ManaCost,
			Cooldown:    a.Cooldown,
			Remaining:   p.Cooldowns[i],
			Damage:      a.Damage,
			Healing:     a.Healing,
			Ready:       p.canUse(i) == nil,
		}
	}
	return st
}
