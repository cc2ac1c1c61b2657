package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/chatbox/internal/tui/model"
	"github.com/matheus3301/chatbox/internal/tui/ui"
	"github.com/rivo/tview"
)

// ContactInfo displays details about one contact.
type ContactInfo struct {
	*tview.TextView
	theme *ui.Theme
	now   func() time.Time
}

// NewContactInfo creates a new contact info view.
func NewContactInfo(theme *ui.Theme) *ContactInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Contact Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ContactInfo{
		TextView: tv,
		theme:    theme,
		now:      time.Now,
	}
}

// Name implements ui.Component.
func (ci *ContactInfo) Name() string { return "Details" }

// Hints implements ui.Component.
func (ci *ContactInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders details for r.
func (ci *ContactInfo) Update(r model.ContactRow) {
	ci.Clear()

	fg := ui.ColorTag(ci.theme.FgColor)
	ct := ui.ColorTag(ci.theme.CounterColor)

	key := r.ConversationKey
	if key == "" {
		key = "(not in directory yet)"
	}
	last := formatTimestamp(r.LastAt, ci.now())
	if last == "" {
		last = "-"
	}

	_, _ = fmt.Fprintf(ci,
		"\n [%s::b]Contact:[-:-:-]      [%s]%s[-]\n"+
			" [%s::b]Conversation:[-:-:-] [%s]%s[-]\n"+
			" [%s::b]Messages:[-:-:-]     [%s]%d[-]\n"+
			" [%s::b]Sending:[-:-:-]      [%s]%d[-]\n"+
			" [%s::b]Failed:[-:-:-]       [%s]%d[-]\n"+
			" [%s::b]Last Active:[-:-:-]  [%s]%s[-]\n"+
			" [%s::b]Last Message:[-:-:-] [%s]%s[-]",
		fg, ct, r.Identity,
		fg, ct, tview.Escape(key),
		fg, ct, r.Messages,
		fg, ct, r.Sending,
		fg, ct, r.Failed,
		fg, ct, last,
		fg, ct, tview.Escape(sanitizeForTerminal(r.LastMessage, true)),
	)
	ci.SetTitle(fmt.Sprintf(" %s Details ", r.Identity))
}
