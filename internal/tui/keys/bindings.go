package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatbox/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Display     string // key as shown in the menu
	Description string
	Numeric     bool
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

func (a *Action) hint() ui.MenuHint {
	key := a.Display
	if key == "" {
		key = string(a.Rune)
	}
	return ui.MenuHint{Key: key, Description: a.Description, Numeric: a.Numeric}
}

// Registry holds keybindings by page. Bindings keep registration order, so
// hints render in a stable order and the first match wins.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(action *Action) {
	r.global = append(r.global, action)
}

// AddPage registers a binding active on one page.
func (r *Registry) AddPage(page string, action *Action) {
	r.pages[page] = append(r.pages[page], action)
}

// Hints returns visible hints for page: page bindings first, then globals.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, a := range r.pages[page] {
		if a.Visible {
			hints = append(hints, a.hint())
		}
	}
	for _, a := range r.global {
		if a.Visible {
			hints = append(hints, a.hint())
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the first matching action on page,
// falling back to globals. Returns true if a handler ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, a := range r.pages[page] {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	for _, a := range r.global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
