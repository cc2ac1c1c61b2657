package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/chatbox/internal/tui/ui"
	"github.com/rivo/tview"
)

// helpSections lists every key and command, grouped by where it applies.
var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{"Tab", "Cycle focus: contacts, add contact, messages, composer"},
		{":", "Command mode"},
		{"?", "This help"},
		{"q", "Quit (outside input fields)"},
		{"Ctrl-C", "Quit immediately"},
		{"Esc", "Back / leave input"},
	}},
	{"Contacts", [][2]string{
		{"Enter", "Open conversation and load its history"},
		{"1-9", "Open the Nth contact"},
		{"/", "Filter contacts"},
		{"d", "Contact details"},
	}},
	{"Conversation", [][2]string{
		{"Enter", "Send (in composer)"},
		{"r", "Retry the last failed message"},
	}},
	{"Commands", [][2]string{
		{":add <mobile>", "Add a contact"},
		{":open <mobile>", "Open a contact"},
		{":retry", "Retry the last failed message"},
		{":logout", "Disconnect and return to registration"},
		{":help", "This help"},
		{":quit", "Quit"},
	}},
}

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	_, _ = fmt.Fprint(hv, renderHelp(ui.ColorTag(theme.MenuKeyColor)))
	return hv
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func renderHelp(keyColor string) string {
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			pad := strings.Repeat(" ", max(1, 18-len(r[0])))
			fmt.Fprintf(&b, "  [%s]%s[-:-:-]%s%s\n", keyColor, tview.Escape(r[0]), pad, r[1])
		}
	}
	return b.String()
}
