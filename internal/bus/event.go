package bus

import "time"

// Event kinds. Subscribers filter by prefix, e.g. "conversation." or "session.".
const (
	KindStatusChanged  = "session.status_changed"
	KindAppended       = "conversation.appended"
	KindStatusUpdated  = "conversation.status_updated"
	KindHistoryApplied = "conversation.history_applied"
	KindSelected       = "conversation.selected"
	KindContactAdded   = "contacts.added"
	KindContactsLoaded = "contacts.loaded"
	KindNotice         = "notice"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Level grades a user-facing notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is the payload of KindNotice events: a message meant for the user.
type Notice struct {
	Level Level
	Text  string
}
