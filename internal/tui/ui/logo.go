package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo displays a compact ASCII art logo.
type Logo struct {
	*tview.TextView
	theme *Theme
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 0, 1)

	l := &Logo{
		TextView: tv,
		theme:    theme,
	}
	title := ColorTag(theme.TitleColor)
	_, _ = fmt.Fprintf(l,
		"[%s::b]┌─┐┬ ┬┌─┐┌┬┐┌┐ ┌─┐─┐ ┬[-:-:-]\n"+
			"[%s::b]│  ├─┤├─┤ │ ├┴┐│ │┌┴┬┘[-:-:-]\n"+
			"[%s::b]└─┘┴ ┴┴ ┴ ┴ └─┘└─┘┴ └─[-:-:-]\n"+
			"[%s]relay chat[-:-:-]",
		title, title, title, ColorTag(theme.FgColor),
	)
	return l
}
