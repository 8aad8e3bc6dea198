package session

// EventType represents a session event type.
type EventType int

const (
	EventSongLoaded EventType = iota // A new song replaced the session state
	EventAdvanced                    // The cursor moved forward
	EventCompleted                   // The cursor reached the terminal position
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventSongLoaded:
		return "song_loaded"
	case EventAdvanced:
		return "advanced"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event represents a session event delivered to subscribers.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}
