package combat

// EventKind classifies an entry in the battle log.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventHit      EventKind = "hit"
	EventDefeated EventKind = "defeated"
	EventHeal     EventKind = "heal"
	EventUsed     EventKind = "used"
	EventVictory  EventKind = "victory"
	EventDefeat   EventKind = "defeat"
	EventTimeout  EventKind = "timeout"
	EventFled     EventKind = "fled"
)

// Event is one log entry. Seq increases by one per event within a session, so
// a subscriber that missed updates can detect the gap and resynchronise.
type Event struct {
	Seq      uint64    `json:"seq"`
	Tick     int       `json:"tick"`
	Kind     EventKind `json:"kind"`
	ActorID  string    `json:"actor_id,omitempty"`
	TargetID string    `json:"target_id,omitempty"`
	Ability  string    `json:"ability,omitempty"`
	Amount   int       `json:"amount,omitempty"`
	Critical bool      `json:"critical,omitempty"`
	Text     string    `json:"text"`
}

// eventLog keeps the most recent events up to a fixed capacity.
type eventLog struct {
	capacity int
	events   []Event
	lastSeq  uint64
}

func newEventLog(capacity int) *eventLog {
	return &eventLog{capacity: capacity, events: make([]Event, 0, capacity)}
}

// append stamps e with the next sequence number and returns the stored event.
func (l *eventLog) append(e Event) Event {
	l.lastSeq++
	e.Seq = l.lastSeq
	if len(l.events) == l.capacity {
		copy(l.events, l.events[1:])
		l.events = l.events[:len(l.events)-1]
	}
	l.events = append(l.events, e)
	return e
}

// since returns retained events with Seq > seq, oldest first.
func (l *eventLog) since(seq uint64) []Event {
	for i, e := range l.events {
		if e.Seq > seq {
			return append([]Event(nil), l.events[i:]...)
		}
	}
	return nil
}

// tail returns up to n of the most recent events, oldest first.
func (l *eventLog) tail(n int) []Event {
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	return append([]Event(nil), l.events[len(l.events)-n:]...)
}
