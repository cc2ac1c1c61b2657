package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode indicates the type of prompt (command or filter).
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

// Prompt is a command/filter input bar. Submitted commands can be recalled
// with Up and Down.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	mode     PromptMode
	history  []string
	cursor   int
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{
		InputField: input,
		theme:      theme,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			p.Submit(p.GetText())
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if p.mode != PromptCommand {
			return ev
		}
		switch ev.Key() {
		case tcell.KeyUp:
			p.SetText(p.Recall(-1))
			return nil
		case tcell.KeyDown:
			p.SetText(p.Recall(1))
			return nil
		}
		return ev
	})

	return p
}

// SetOnSubmit sets the callback when the prompt is submitted.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback when the prompt is cancelled.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate shows the prompt in the specified mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.cursor = len(p.history)
	p.SetText("")
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
	}
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}

// Submit records text in the command history and hands it to the submit
// callback. Filters are submitted even when empty, which clears them.
func (p *Prompt) Submit(text string) {
	if p.mode == PromptCommand {
		if text == "" {
			return
		}
		if n := len(p.history); n == 0 || p.history[n-1] != text {
			p.history = append(p.history, text)
		}
		p.cursor = len(p.history)
	}
	p.SetText("")
	if p.onSubmit != nil {
		p.onSubmit(p.mode, text)
	}
}

// Recall moves through the command history by delta and returns the entry
// under the cursor. Moving past the newest entry yields an empty line.
func (p *Prompt) Recall(delta int) string {
	p.cursor = max(0, min(len(p.history), p.cursor+delta))
	if p.cursor == len(p.history) {
		return ""
	}
	return p.history[p.cursor]
}
