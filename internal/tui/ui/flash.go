package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/rivo/tview"
)

// How long a notice of each level stays on screen.
var flashTTL = map[bus.Level]time.Duration{
	bus.LevelInfo:  5 * time.Second,
	bus.LevelWarn:  8 * time.Second,
	bus.LevelError: 10 * time.Second,
}

// FlashMessage is a notice with an expiry.
type FlashMessage struct {
	Text    string
	Level   bus.Level
	Expires time.Time
}

// FlashModel holds the most recent notice.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
}

// NewFlashModel creates a new flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{now: time.Now}
}

// Info sets an info-level flash message.
func (f *FlashModel) Info(msg string) {
	f.Notice(bus.Notice{Level: bus.LevelInfo, Text: msg})
}

// Warn sets a warn-level flash message.
func (f *FlashModel) Warn(msg string) {
	f.Notice(bus.Notice{Level: bus.LevelWarn, Text: msg})
}

// Err sets an error-level flash message.
func (f *FlashModel) Err(err error) {
	f.Notice(bus.Notice{Level: bus.LevelError, Text: err.Error()})
}

// Notice replaces the current message with n.
func (f *FlashModel) Notice(n bus.Notice) {
	ttl, ok := flashTTL[n.Level]
	if !ok {
		ttl = flashTTL[bus.LevelInfo]
	}
	f.mu.Lock()
	f.current = FlashMessage{Text: n.Text, Level: n.Level, Expires: f.now().Add(ttl)}
	f.mu.Unlock()
}

// Current returns the current message, or nil if it expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || f.now().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders a flash message on the bar.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	color := ColorTag(fb.theme.FlashColor(msg.Level))
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", color, tview.Escape(msg.Text))
}
