package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatbox/internal/conversation"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays one conversation and the composer under it.
type MessageThread struct {
	*tview.Flex
	theme       *ui.Theme
	messages    *tview.TextView
	composer    *tview.InputField
	counterpart identity.Identity
	onSend      func(text string)
	now         func() time.Time
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" No conversation ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, false).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSend == nil {
			return
		}
		text := composer.GetText()
		if strings.TrimSpace(text) == "" {
			return
		}
		mt.onSend(text)
		composer.SetText("")
	})

	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string {
	if mt.counterpart != "" {
		return string(mt.counterpart)
	}
	return "Messages"
}

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Send"},
		{Key: "r", Description: "Retry failed"},
		{Key: "Esc", Description: "Contacts"},
	}
}

// SetOnSend sets the callback when a message is submitted.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update renders the conversation with counterpart.
func (mt *MessageThread) Update(counterpart identity.Identity, views []conversation.View) {
	mt.counterpart = counterpart
	if counterpart == "" {
		mt.messages.SetTitle(" No conversation ")
	} else {
		mt.messages.SetTitle(fmt.Sprintf(" %s (%d) ", counterpart, len(views)))
	}

	mt.messages.Clear()
	now := mt.now()
	for _, v := range views {
		_, _ = fmt.Fprint(mt.messages, mt.formatMessage(v, now))
	}
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) formatMessage(v conversation.View, now time.Time) string {
	sender := string(v.Sender)
	color := mt.theme.RemoteSenderColor
	if v.Local {
		sender = "You"
		color = mt.theme.LocalSenderColor
	}

	return fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
		ui.ColorTag(color), tview.Escape(sender),
		formatTimestamp(v.At, now),
		mt.statusMarker(v.Status),
		tview.Escape(sanitizeForTerminal(v.Content, false)))
}

func (mt *MessageThread) statusMarker(s conversation.Status) string {
	switch s {
	case conversation.Sending:
		return fmt.Sprintf(" [%s]sending…[-]", ui.ColorTag(mt.theme.SendingColor))
	case conversation.Failed:
		return fmt.Sprintf(" [%s::b]failed (r to retry)[-:-:-]", ui.ColorTag(mt.theme.FailedColor))
	default:
		return ""
	}
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
