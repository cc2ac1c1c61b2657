package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatbox/internal/conversation"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/status"
	"github.com/matheus3301/chatbox/internal/tui/model"
	"github.com/matheus3301/chatbox/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		singleLine bool
		want       string
	}{
		{"plain", "hello", false, "hello"},
		{"escape sequence", "a\x1b[2Jb", false, "a[2Jb"},
		{"bell and nul", "x\x07\x00y", false, "xy"},
		{"skin tone", "👍\U0001F3FB", false, "👍"},
		{"zwj", "a\u200Db", false, "ab"},
		{"newline kept", "a\nb", false, "a\nb"},
		{"newline flattened", "a\nb\tc", true, "a b c"},
		{"invalid utf8", "a\xffb", false, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.in, tt.singleLine); got != tt.want {
				t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	if got := formatTimestamp(time.Time{}, now); got != "" {
		t.Errorf("zero time = %q", got)
	}
	if got := formatTimestamp(now.Add(-time.Hour), now); got != "14:00" {
		t.Errorf("same day = %q", got)
	}
	if got := formatTimestamp(now.AddDate(0, 0, -2), now); got != "03/08" {
		t.Errorf("earlier day = %q", got)
	}
}

func rows() []model.ContactRow {
	return []model.ContactRow{
		{Identity: "9000000002", ConversationKey: "k1", LastMessage: "Lunch tomorrow?"},
		{Identity: "9000000003", ConversationKey: "k2", LastMessage: "ok", Failed: 1},
		{Identity: "9000000004", LastMessage: "who is this"},
	}
}

func TestContactListFilterAndIndex(t *testing.T) {
	cl := NewContactList(ui.DefaultTheme())
	cl.Update(rows())

	if got := cl.ContactByIndex(2); got != "9000000003" {
		t.Errorf("ContactByIndex(2) = %q", got)
	}
	if got := cl.ContactByIndex(4); got != "" {
		t.Errorf("ContactByIndex out of range = %q", got)
	}

	cl.SetFilter("LUNCH")
	if got := cl.ContactByIndex(1); got != "9000000002" {
		t.Errorf("filtered first = %q", got)
	}
	if got := cl.ContactByIndex(2); got != "" {
		t.Errorf("filter kept extra rows: %q", got)
	}

	cl.SetFilter("0004")
	if got := cl.ContactByIndex(1); got != "9000000004" {
		t.Errorf("filter by number = %q", got)
	}

	cl.SetFilter("")
	if got := cl.GetRowCount(); got != 4 {
		t.Errorf("row count with header = %d, want 4", got)
	}
}

func TestContactListKeepsSelection(t *testing.T) {
	cl := NewContactList(ui.DefaultTheme())
	cl.Update(rows())
	cl.Select(2, 0)
	if got := cl.SelectedContact(); got != "9000000003" {
		t.Fatalf("SelectedContact = %q", got)
	}

	// A new contact arriving first shifts rows down.
	updated := append([]model.ContactRow{{Identity: "9000000009", ConversationKey: "k9"}}, rows()...)
	cl.Update(updated)
	if got := cl.SelectedContact(); got != "9000000003" {
		t.Errorf("selection moved to %q", got)
	}

	if r, ok := cl.RowFor("9000000003"); !ok || r.Failed != 1 {
		t.Errorf("RowFor = %+v, %v", r, ok)
	}
}

func TestMessageThreadMarkers(t *testing.T) {
	mt := NewMessageThread(ui.DefaultTheme())
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	mt.now = func() time.Time { return now }

	local := identity.Identity("9000000001")
	views := []conversation.View{
		{Message: conversation.Message{Sender: "9000000002", Content: "hi", ID: "a", Status: conversation.Received, At: now}},
		{Message: conversation.Message{Sender: local, Content: "yo", ID: "b", Status: conversation.Sending, At: now}, Local: true},
		{Message: conversation.Message{Sender: local, Content: "lost", ID: "c", Status: conversation.Failed, At: now}, Local: true},
		{Message: conversation.Message{Sender: local, Content: "ok", ID: "d", Status: conversation.Sent, At: now}, Local: true},
	}
	mt.Update("9000000002", views)

	text := mt.Messages().GetText(true)
	for _, want := range []string{"9000000002", "hi", "You", "sending…", "failed (r to retry)"} {
		if !strings.Contains(text, want) {
			t.Errorf("thread text lacks %q:\n%s", want, text)
		}
	}
	if strings.Count(text, "sending…") != 1 || strings.Count(text, "failed") != 1 {
		t.Errorf("markers attached to the wrong messages:\n%s", text)
	}
	if mt.Name() != "9000000002" {
		t.Errorf("Name = %q", mt.Name())
	}
}

func TestStatusBarLine(t *testing.T) {
	sb := NewStatusBar(ui.DefaultTheme())
	sb.now = func() time.Time { return time.Date(2026, 3, 10, 9, 5, 0, 0, time.Local) }

	sb.Update("9000000001", status.Registered, 2)
	line := sb.line()
	for _, want := range []string{"9000000001", "REGISTERED", "2 awaiting ack", "09:05"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q lacks %q", line, want)
		}
	}

	sb.Update("", status.Unregistered, 0)
	if line := sb.line(); strings.Contains(line, "awaiting") || !strings.Contains(line, "UNREGISTERED") {
		t.Errorf("unregistered line = %q", line)
	}
}

func TestHelpListsCommands(t *testing.T) {
	help := renderHelp("blue")
	for _, want := range []string{":add <mobile>", ":retry", "Retry the last failed message", "Ctrl-C"} {
		if !strings.Contains(help, want) {
			t.Errorf("help lacks %q", want)
		}
	}
}

func TestContactInfo(t *testing.T) {
	ci := NewContactInfo(ui.DefaultTheme())
	ci.Update(model.ContactRow{Identity: "9000000004"})
	text := ci.GetText(true)
	if !strings.Contains(text, "not in directory yet") || !strings.Contains(text, "9000000004") {
		t.Errorf("details = %q", text)
	}
}
