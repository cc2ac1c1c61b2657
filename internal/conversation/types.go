package conversation

import (
	"time"

	"github.com/matheus3301/chatbox/internal/identity"
)

// Status is the delivery state of a message.
type Status string

const (
	Sending  Status = "sending"
	Sent     Status = "sent"
	Received Status = "received"
	Failed   Status = "failed"
)

// Terminal reports whether no further transition exists out of s.
func (s Status) Terminal() bool {
	return s != Sending
}

// rank orders statuses for merging: a delivered message outranks a failed
// attempt, which outranks one still in flight.
func (s Status) rank() int {
	switch s {
	case Sent, Received:
		return 2
	case Failed:
		return 1
	default:
		return 0
	}
}

// Message is one entry of a conversation log. ID is immutable once the
// message exists; only Status changes, and only while it is Sending.
type Message struct {
	Sender  identity.Identity
	Content string
	ID      string
	Status  Status
	At      time.Time
}

// View pairs a message with its presentational role.
type View struct {
	Message
	Local bool
}
