package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatbox/internal/bus"
)

// State is the registration state of the local identity's session.
type State string

const (
	Unregistered State = "UNREGISTERED"
	Connecting   State = "CONNECTING"
	Registered   State = "REGISTERED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Unregistered: {Connecting},
	Connecting:   {Registered, Unregistered},
	Registered:   {Unregistered},
}

// Machine tracks and enforces session state transitions. Every move out of
// Unregistered starts a new session, numbered from 1.
type Machine struct {
	mu      sync.RWMutex
	current State
	session uint64
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Unregistered state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Unregistered,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Session returns the number of the current or most recent session, or 0
// before the first one.
func (m *Machine) Session() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Is reports whether the machine is currently in state s.
func (m *Machine) Is(s State) bool {
	return m.Current() == s
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.current, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	if from == Unregistered {
		m.session++
	}
	m.current = to
	m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to, Session: m.session})
	return nil
}

// Settle moves to Unregistered from whatever state the session is in.
// It is used when the connection goes away.
func (m *Machine) Settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == Unregistered {
		return
	}
	from := m.current
	m.current = Unregistered
	m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: Unregistered, Session: m.session})
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// StatusChange is the payload for status change events. Session tells
// which session the change belongs to.
type StatusChange struct {
	From    State
	To      State
	Session uint64
}
