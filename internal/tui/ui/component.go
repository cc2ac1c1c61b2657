package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 1-9 jumps, drawn in a different color
}

// Component is implemented by every page the app can show.
type Component interface {
	Name() string
	Hints() []MenuHint
}
