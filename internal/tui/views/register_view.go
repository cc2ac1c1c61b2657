package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatbox/internal/tui/ui"
	"github.com/rivo/tview"
)

const identityLabel = "Mobile number "

// RegisterView is the registration form shown while unregistered.
type RegisterView struct {
	*tview.Flex
	theme      *ui.Theme
	form       *tview.Form
	input      *tview.InputField
	message    *tview.TextView
	onRegister func(raw string)
	onQuit     func()
}

// NewRegisterView creates the registration page with prefill in the field.
func NewRegisterView(theme *ui.Theme, prefill string) *RegisterView {
	rv := &RegisterView{theme: theme}

	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetTitle(" Register ")
	form.SetTitleColor(theme.TitleColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)

	form.AddInputField(identityLabel, prefill, 12, func(text string, last rune) bool {
		return len(text) <= 10 && last >= '0' && last <= '9'
	}, nil)
	form.AddButton("Register", func() {
		if rv.onRegister != nil {
			rv.onRegister(rv.input.GetText())
		}
	})
	form.AddButton("Quit", func() {
		if rv.onQuit != nil {
			rv.onQuit()
		}
	})
	rv.input = form.GetFormItemByLabel(identityLabel).(*tview.InputField)

	message := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	message.SetBackgroundColor(theme.BgColor)

	rv.form = form
	rv.message = message
	rv.Flex = tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(form, 7, 0, true).
			AddItem(message, 2, 0, false).
			AddItem(nil, 0, 1, false), 44, 0, true).
		AddItem(nil, 0, 1, false)
	return rv
}

// Name implements ui.Component.
func (rv *RegisterView) Name() string { return "Register" }

// Hints implements ui.Component.
func (rv *RegisterView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Next / Press"},
		{Key: "Tab", Description: "Next field"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnRegister sets the callback for the Register button.
func (rv *RegisterView) SetOnRegister(fn func(raw string)) {
	rv.onRegister = fn
}

// SetOnQuit sets the callback for the Quit button.
func (rv *RegisterView) SetOnQuit(fn func()) {
	rv.onQuit = fn
}

// Input returns the identity field (for focus management).
func (rv *RegisterView) Input() *tview.InputField {
	return rv.input
}

// Form returns the form (for focus management).
func (rv *RegisterView) Form() *tview.Form {
	return rv.form
}

// ShowInfo displays a neutral status line under the form.
func (rv *RegisterView) ShowInfo(msg string) {
	rv.show(rv.theme.FgColor, msg)
}

// ShowError displays an error line under the form.
func (rv *RegisterView) ShowError(msg string) {
	rv.show(rv.theme.FailedColor, msg)
}

func (rv *RegisterView) show(color tcell.Color, msg string) {
	rv.message.Clear()
	_, _ = fmt.Fprintf(rv.message, "[%s]%s[-]", ui.ColorTag(color), tview.Escape(msg))
}
