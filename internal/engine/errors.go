package engine

import "errors"

var (
	// ErrEmptyMessage is returned when sending blank content.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoRecipient is returned when sending with no counterpart selected.
	ErrNoRecipient = errors.New("no recipient selected")
	// ErrNotRegistered is returned by operations that need a registered identity.
	ErrNotRegistered = errors.New("not registered")
	// ErrAlreadyRegistered is returned by Register while a session is live or connecting.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrUnknownContact is returned when selecting a counterpart that is not a contact.
	ErrUnknownContact = errors.New("unknown contact")
	// ErrNotFailed is returned when retrying a message that did not fail.
	ErrNotFailed = errors.New("message has not failed")
	// ErrStaleAcknowledgement marks an ACK/ERR that matched no pending message.
	// It is logged and never surfaced to the user.
	ErrStaleAcknowledgement = errors.New("stale acknowledgement")
	// ErrSelectionSuperseded is returned when a history fetch completes after
	// another contact was selected; its result is discarded.
	ErrSelectionSuperseded = errors.New("selection superseded")
	// ErrInvalidFrame marks an inbound delivery that cannot be attributed.
	ErrInvalidFrame = errors.New("invalid inbound frame")
)
