package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Identity      string
	State         string
	Contacts      int
	Conversations int
	Pending       int
	Uptime        time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data SessionData) {
	si.Clear()

	fg := ColorTag(si.theme.FgColor)
	ct := ColorTag(si.theme.CounterColor)

	id := data.Identity
	if id == "" {
		id = "-"
	}

	_, _ = fmt.Fprintf(si,
		"[%s::b]Identity:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]State:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Contacts:[-:-:-] [%s]%d[-] [%s::b]Chats:[-:-:-] [%s]%d[-]\n"+
			"[%s::b]Pending:[-:-:-]  [%s]%d[-] [%s::b]Up:[-:-:-] [%s]%s[-]",
		fg, ct, id,
		fg, ct, data.State,
		fg, ct, data.Contacts, fg, ct, data.Conversations,
		fg, ct, data.Pending, fg, ct, FormatUptime(data.Uptime),
	)
}

// FormatUptime renders d as "XhYm" or "Ym".
func FormatUptime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
