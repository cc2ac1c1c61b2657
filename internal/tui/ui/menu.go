package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Menu displays keyboard shortcut hints for the focused page.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints in columns of up to four rows.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, FormatHints(hints, ColorTag(m.theme.MenuKeyColor), ColorTag(m.theme.NumericKeyColor)))
}

// FormatHints lays hints out column-major, four rows per column.
func FormatHints(hints []MenuHint, keyColor, numColor string) string {
	const rows = 4
	cols := (len(hints) + rows - 1) / rows
	lines := make([]string, min(rows, len(hints)))
	for i, h := range hints {
		kc := keyColor
		if h.Numeric {
			kc = numColor
		}
		cell := fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", kc, h.Key, h.Description)
		if i/rows < cols-1 {
			cell += strings.Repeat(" ", max(1, 22-len(h.Key)-len(h.Description)))
		}
		lines[i%rows] += cell
	}
	return strings.Join(lines, "\n")
}
