package conversation

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/identity"
)

var (
	// ErrNoConversation indicates the counterpart has no conversation log yet.
	ErrNoConversation = errors.New("conversation: no conversation for counterpart")
	// ErrMessageNotFound indicates no message with the given id is in the log.
	ErrMessageNotFound = errors.New("conversation: message not found")
	// ErrNotPending indicates the target message already left Sending.
	ErrNotPending = errors.New("conversation: message is not pending")
)

// StatusChange is the payload of bus.KindStatusUpdated events.
type StatusChange struct {
	Counterpart identity.Identity
	MessageID   string
	From        Status
	To          Status
}

// Store holds every conversation of the session, keyed by counterpart.
// Logs are append-only; the only in-place mutation is a status transition out
// of Sending, and the only bulk mutation is applying fetched history.
type Store struct {
	mu    sync.RWMutex
	logs  map[identity.Identity][]Message
	index map[identity.Identity]map[string]int
	order []identity.Identity
	bus   *bus.Bus
}

// NewStore creates an empty store publishing change events on b (may be nil).
func NewStore(b *bus.Bus) *Store {
	return &Store{
		logs:  make(map[identity.Identity][]Message),
		index: make(map[identity.Identity]map[string]int),
		bus:   b,
	}
}

// Append adds m to the end of the counterpart's log. It returns false and
// leaves the log untouched when a message with the same ID is already there.
func (s *Store) Append(counterpart identity.Identity, m Message) bool {
	s.mu.Lock()
	idx := s.ensure(counterpart)
	if _, dup := idx[m.ID]; dup {
		s.mu.Unlock()
		return false
	}
	idx[m.ID] = len(s.logs[counterpart])
	s.logs[counterpart] = append(s.logs[counterpart], m)
	s.mu.Unlock()

	s.bus.Emit(bus.KindAppended, counterpart)
	return true
}

// UpdateStatus moves the message with the given ID from Sending to `to`.
func (s *Store) UpdateStatus(counterpart identity.Identity, id string, to Status) error {
	s.mu.Lock()
	log, ok := s.logs[counterpart]
	if !ok {
		s.mu.Unlock()
		return ErrNoConversation
	}
	pos, ok := s.index[counterpart][id]
	if !ok {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	from := log[pos].Status
	if from != Sending {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotPending, id, from)
	}
	log[pos].Status = to
	s.mu.Unlock()

	s.bus.Emit(bus.KindStatusUpdated, StatusChange{Counterpart: counterpart, MessageID: id, From: from, To: to})
	return nil
}

// Withdraw removes a message that is still Sending and was never handed to
// the wire. A log left empty by the removal is dropped, so a send that never
// happened leaves no trace.
func (s *Store) Withdraw(counterpart identity.Identity, id string) error {
	s.mu.Lock()
	log, ok := s.logs[counterpart]
	if !ok {
		s.mu.Unlock()
		return ErrNoConversation
	}
	pos, ok := s.index[counterpart][id]
	if !ok {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	if st := log[pos].Status; st != Sending {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotPending, id, st)
	}
	rest := append(log[:pos:pos], log[pos+1:]...)
	if len(rest) == 0 {
		delete(s.logs, counterpart)
		delete(s.index, counterpart)
		s.order = slices.DeleteFunc(s.order, func(c identity.Identity) bool { return c == counterpart })
	} else {
		s.install(counterpart, rest)
	}
	s.mu.Unlock()

	s.bus.Emit(bus.KindHistoryApplied, counterpart)
	return nil
}

// Replace discards the counterpart's log and installs msgs in their place.
// Duplicate IDs within msgs keep their first occurrence.
func (s *Store) Replace(counterpart identity.Identity, msgs []Message) {
	s.mu.Lock()
	s.ensure(counterpart)
	s.install(counterpart, msgs)
	s.mu.Unlock()

	s.bus.Emit(bus.KindHistoryApplied, counterpart)
}

// Merge unions msgs (authoritative history, in order) with the current log.
// A message present in both keeps the more advanced status; messages only
// present locally are kept after the history in their original order.
func (s *Store) Merge(counterpart identity.Identity, msgs []Message) {
	s.mu.Lock()
	s.ensure(counterpart)
	current := s.logs[counterpart]
	local := make(map[string]Message, len(current))
	for _, m := range current {
		local[m.ID] = m
	}

	merged := make([]Message, 0, len(msgs)+len(current))
	inHistory := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := inHistory[m.ID]; dup {
			continue
		}
		inHistory[m.ID] = struct{}{}
		if prev, ok := local[m.ID]; ok && prev.Status.rank() > m.Status.rank() {
			m.Status = prev.Status
		}
		merged = append(merged, m)
	}
	for _, m := range current {
		if _, ok := inHistory[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	s.install(counterpart, merged)
	s.mu.Unlock()

	s.bus.Emit(bus.KindHistoryApplied, counterpart)
}

// Messages returns a copy of the counterpart's log.
func (s *Store) Messages(counterpart identity.Identity) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[counterpart]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}

// Get returns the message with the given ID in the counterpart's log.
func (s *Store) Get(counterpart identity.Identity, id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[counterpart][id]
	if !ok {
		return Message{}, false
	}
	return s.logs[counterpart][pos], true
}

// Counterparts returns conversation keys in order of first appearance.
func (s *Store) Counterparts() []identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]identity.Identity, len(s.order))
	copy(out, s.order)
	return out
}

// ensure creates the log for counterpart if missing. Caller holds s.mu.
func (s *Store) ensure(counterpart identity.Identity) map[string]int {
	idx, ok := s.index[counterpart]
	if !ok {
		idx = make(map[string]int)
		s.index[counterpart] = idx
		s.logs[counterpart] = nil
		s.order = append(s.order, counterpart)
	}
	return idx
}

// install overwrites a log and rebuilds its index. Caller holds s.mu.
func (s *Store) install(counterpart identity.Identity, msgs []Message) {
	log := make([]Message, 0, len(msgs))
	idx := make(map[string]int, len(msgs))
	for _, m := range msgs {
		if _, dup := idx[m.ID]; dup {
			continue
		}
		idx[m.ID] = len(log)
		log = append(log, m)
	}
	s.logs[counterpart] = log
	s.index[counterpart] = idx
}
