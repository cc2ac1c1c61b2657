package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/tui/model"
	"github.com/matheus3301/chatbox/internal/tui/ui"
	"github.com/rivo/tview"
)

// ContactList is the table of contacts and conversations.
type ContactList struct {
	*tview.Table
	theme   *ui.Theme
	rows    []model.ContactRow
	visible []model.ContactRow
	filter  string
	now     func() time.Time
}

// NewContactList creates a new contact list table.
func NewContactList(theme *ui.Theme) *ContactList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Contacts ")
	table.SetTitleColor(theme.TitleColor)

	return &ContactList{
		Table: table,
		theme: theme,
		now:   time.Now,
	}
}

// Name implements ui.Component.
func (cl *ContactList) Name() string { return "Contacts" }

// Hints implements ui.Component.
func (cl *ContactList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "d", Description: "Details"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the rows, keeping the selected contact selected.
func (cl *ContactList) Update(rows []model.ContactRow) {
	selected := cl.SelectedContact()
	cl.rows = rows
	cl.render()
	if selected != "" {
		cl.selectContact(selected)
	}
}

// SetFilter sets the active filter text and re-renders.
func (cl *ContactList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
}

// Filter returns the active filter text.
func (cl *ContactList) Filter() string {
	return cl.filter
}

func (cl *ContactList) matches(r model.ContactRow) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	return strings.Contains(string(r.Identity), f) ||
		strings.Contains(strings.ToLower(r.LastMessage), f)
}

func (cl *ContactList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" CONTACT", 1},
		{" LAST MESSAGE", 3},
		{" TIME", 0},
		{" STATE", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	now := cl.now()
	for _, r := range cl.rows {
		if !cl.matches(r) {
			continue
		}
		cl.visible = append(cl.visible, r)
		row := len(cl.visible)

		name := string(r.Identity)
		if r.Active {
			name = "> " + name
		}
		fg := cl.theme.FgColor
		if r.ConversationKey == "" {
			// Known from traffic only, not in the directory yet.
			fg = cl.theme.SendingColor
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(fg))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(r.LastMessage, true))).SetExpansion(3).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(r.LastAt, now)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, cl.stateCell(r))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d/%d) filter: %s ", len(cl.visible), len(cl.rows), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d) ", len(cl.rows)))
	}
}

func (cl *ContactList) stateCell(r model.ContactRow) *tview.TableCell {
	switch {
	case r.Failed > 0:
		return tview.NewTableCell(fmt.Sprintf(" %d failed", r.Failed)).SetTextColor(cl.theme.FailedColor)
	case r.Sending > 0:
		return tview.NewTableCell(fmt.Sprintf(" %d sending", r.Sending)).SetTextColor(cl.theme.SendingColor)
	default:
		return tview.NewTableCell(" ")
	}
}

// SelectedContact returns the identity under the cursor.
func (cl *ContactList) SelectedContact() identity.Identity {
	row, _ := cl.GetSelection()
	return cl.ContactByIndex(row)
}

// ContactByIndex returns the Nth visible contact (1-based).
func (cl *ContactList) ContactByIndex(n int) identity.Identity {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].Identity
}

// RowFor returns the row for id.
func (cl *ContactList) RowFor(id identity.Identity) (model.ContactRow, bool) {
	for _, r := range cl.rows {
		if r.Identity == id {
			return r, true
		}
	}
	return model.ContactRow{}, false
}

func (cl *ContactList) selectContact(id identity.Identity) {
	for i, r := range cl.visible {
		if r.Identity == id {
			cl.Select(i+1, 0)
			return
		}
	}
}
