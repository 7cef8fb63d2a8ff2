package match

import "time"

// EventType names a committed state transition.
type EventType string

const (
	EventMatchStarted  EventType = "match_started"
	EventMatchReset    EventType = "match_reset"
	EventEntryAppended EventType = "entry_appended"
	EventRoundAdvanced EventType = "round_advanced"
	EventMatchEnded    EventType = "match_ended"
	EventUndone        EventType = "undone"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is published after a transition has been committed.
type Event struct {
	Type    EventType
	MatchID string
	// Entry is the appended (or, for EventUndone, removed) history entry.
	Entry    *HistoryEntry
	Snapshot Snapshot
	Time     time.Time
}

// Subscriber receives committed transitions. Subscribers run synchronously
// on the writer, in registration order, and cannot fail the transition.
type Subscriber interface {
	OnEvent(Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event)

// OnEvent calls f.
func (f SubscriberFunc) OnEvent(e Event) { f(e) }
