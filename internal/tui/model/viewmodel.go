package model

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/contacts"
	"github.com/matheus3301/chatbox/internal/conversation"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/status"
)

// previewLen caps the last-message column, in runes.
const previewLen = 40

// Source is the read side of the engine.
type Source interface {
	Local() identity.Identity
	State() status.State
	Active() identity.Identity
	Contacts() []contacts.Contact
	Conversations() []identity.Identity
	Conversation(counterpart identity.Identity) []conversation.View
	PendingAcks() int
}

// ContactRow is one line of the contact list. ConversationKey is empty for a
// counterpart that has written to us but is not in the directory yet.
type ContactRow struct {
	Identity        identity.Identity
	ConversationKey string
	LastMessage     string
	LastAt          time.Time
	Messages        int
	Sending         int
	Failed          int
	Active          bool
}

// Snapshot is everything the screen shows at one instant.
type Snapshot struct {
	Local    identity.Identity
	State    status.State
	Active   identity.Identity
	Contacts []ContactRow
	Thread   []conversation.View
	Pending  int
}

// ActiveRow returns the row of the active contact.
func (s Snapshot) ActiveRow() (ContactRow, bool) {
	for _, r := range s.Contacts {
		if r.Active {
			return r, true
		}
	}
	return ContactRow{}, false
}

// LastFailed returns the most recent failed outgoing message of the active
// conversation.
func (s Snapshot) LastFailed() (conversation.View, bool) {
	for i := len(s.Thread) - 1; i >= 0; i-- {
		v := s.Thread[i]
		if v.Local && v.Status == conversation.Failed {
			return v, true
		}
	}
	return conversation.View{}, false
}

// ViewModel turns bus events into refresh signals and engine state into
// snapshots. It never mutates the engine.
type ViewModel struct {
	src       Source
	refreshCh chan struct{}
}

// NewViewModel creates a view model reading from src.
func NewViewModel(src Source) *ViewModel {
	return &ViewModel{
		src:       src,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh. Bursts of events
// collapse into one signal.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Watch forwards notices to onNotice and signals a refresh for every other
// event until ctx is done.
func (vm *ViewModel) Watch(ctx context.Context, b *bus.Bus, onNotice func(bus.Notice)) {
	events, unsubscribe := b.Subscribe("", 256)
	go func() {
		defer unsubscribe()
		for {
			select {
			case evt := <-events:
				if n, ok := evt.Payload.(bus.Notice); ok {
					if onNotice != nil {
						onNotice(n)
					}
					continue
				}
				vm.signalRefresh()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Snapshot reads the current engine state.
func (vm *ViewModel) Snapshot() Snapshot {
	s := Snapshot{
		Local:   vm.src.Local(),
		State:   vm.src.State(),
		Active:  vm.src.Active(),
		Pending: vm.src.PendingAcks(),
	}

	seen := make(map[identity.Identity]bool)
	for _, ct := range vm.src.Contacts() {
		seen[ct.Identity] = true
		s.Contacts = append(s.Contacts, vm.row(ct.Identity, ct.ConversationKey, s.Active))
	}
	for _, id := range vm.src.Conversations() {
		if seen[id] {
			continue
		}
		s.Contacts = append(s.Contacts, vm.row(id, "", s.Active))
	}
	if s.Active != "" {
		s.Thread = vm.src.Conversation(s.Active)
	}
	return s
}

func (vm *ViewModel) row(id identity.Identity, key string, active identity.Identity) ContactRow {
	r := ContactRow{Identity: id, ConversationKey: key, Active: id == active}
	msgs := vm.src.Conversation(id)
	r.Messages = len(msgs)
	for _, m := range msgs {
		switch m.Status {
		case conversation.Sending:
			r.Sending++
		case conversation.Failed:
			r.Failed++
		}
	}
	if n := len(msgs); n > 0 {
		r.LastMessage = truncate(msgs[n-1].Content, previewLen)
		r.LastAt = msgs[n-1].At
	}
	return r
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
