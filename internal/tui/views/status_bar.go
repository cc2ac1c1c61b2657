package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/chatbox/internal/status"
	"github.com/matheus3301/chatbox/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays the session state along the bottom edge.
type StatusBar struct {
	*tview.TextView
	theme    *ui.Theme
	identity string
	state    status.State
	pending  int
	now      func() time.Time
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme, state: status.Unregistered, now: time.Now}
}

// Update sets the displayed session fields and redraws.
func (sb *StatusBar) Update(identity string, state status.State, pending int) {
	sb.identity = identity
	sb.state = state
	sb.pending = pending
	sb.render()
}

// Tick redraws the clock.
func (sb *StatusBar) Tick() {
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.line())
}

func (sb *StatusBar) line() string {
	id := sb.identity
	if id == "" {
		id = "-"
	}
	color := "yellow"
	switch sb.state {
	case status.Registered:
		color = "green"
	case status.Unregistered:
		color = ui.ColorTag(sb.theme.FailedColor)
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-]", id, color, sb.state)
	if sb.pending > 0 {
		line += fmt.Sprintf(" | %d awaiting ack", sb.pending)
	}
	return line + " | " + sb.now().Format("15:04")
}
