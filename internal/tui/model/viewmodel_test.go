package model

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/contacts"
	"github.com/matheus3301/chatbox/internal/conversation"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/status"
)

const (
	alice identity.Identity = "9000000001"
	bob   identity.Identity = "9000000002"
	carol identity.Identity = "9000000003"
)

type fakeSource struct {
	local    identity.Identity
	state    status.State
	active   identity.Identity
	contacts []contacts.Contact
	logs     map[identity.Identity][]conversation.View
	order    []identity.Identity
	pending  int
}

func (f *fakeSource) Local() identity.Identity           { return f.local }
func (f *fakeSource) State() status.State                { return f.state }
func (f *fakeSource) Active() identity.Identity          { return f.active }
func (f *fakeSource) Contacts() []contacts.Contact       { return f.contacts }
func (f *fakeSource) Conversations() []identity.Identity { return f.order }
func (f *fakeSource) PendingAcks() int                   { return f.pending }

func (f *fakeSource) Conversation(id identity.Identity) []conversation.View {
	return f.logs[id]
}

func view(sender identity.Identity, local bool, id, content string, st conversation.Status) conversation.View {
	return conversation.View{
		Message: conversation.Message{Sender: sender, Content: content, ID: id, Status: st, At: time.Unix(1700000000, 0)},
		Local:   local,
	}
}

func TestSnapshotRows(t *testing.T) {
	src := &fakeSource{
		local:  alice,
		state:  status.Registered,
		active: bob,
		contacts: []contacts.Contact{
			{Identity: bob, ConversationKey: "k-ab"},
		},
		logs: map[identity.Identity][]conversation.View{
			bob: {
				view(bob, false, "m1", "hi", conversation.Received),
				view(alice, true, "m2", "yo", conversation.Sending),
				view(alice, true, "m3", "again", conversation.Failed),
			},
			carol: {view(carol, false, "m4", "who is this", conversation.Received)},
		},
		order:   []identity.Identity{bob, carol},
		pending: 1,
	}

	snap := NewViewModel(src).Snapshot()
	if snap.Local != alice || snap.State != status.Registered || snap.Pending != 1 {
		t.Fatalf("header fields = %+v", snap)
	}
	if len(snap.Contacts) != 2 {
		t.Fatalf("rows = %d, want 2", len(snap.Contacts))
	}

	b := snap.Contacts[0]
	if b.Identity != bob || b.ConversationKey != "k-ab" || !b.Active {
		t.Errorf("bob row = %+v", b)
	}
	if b.Messages != 3 || b.Sending != 1 || b.Failed != 1 || b.LastMessage != "again" {
		t.Errorf("bob counters = %+v", b)
	}

	c := snap.Contacts[1]
	if c.Identity != carol || c.ConversationKey != "" || c.Active {
		t.Errorf("carol row = %+v", c)
	}

	if len(snap.Thread) != 3 {
		t.Fatalf("thread = %d, want 3", len(snap.Thread))
	}
	row, ok := snap.ActiveRow()
	if !ok || row.Identity != bob {
		t.Errorf("ActiveRow = %+v, %v", row, ok)
	}
	failed, ok := snap.LastFailed()
	if !ok || failed.ID != "m3" {
		t.Errorf("LastFailed = %+v, %v", failed, ok)
	}
}

func TestSnapshotWithoutActiveContact(t *testing.T) {
	snap := NewViewModel(&fakeSource{state: status.Unregistered}).Snapshot()
	if snap.Thread != nil || len(snap.Contacts) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if _, ok := snap.LastFailed(); ok {
		t.Error("LastFailed on empty thread")
	}
	if _, ok := snap.ActiveRow(); ok {
		t.Error("ActiveRow without active contact")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("é", 50)
	got := truncate(long, previewLen)
	if n := len([]rune(got)); n != previewLen {
		t.Errorf("truncated length = %d runes, want %d", n, previewLen)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated %q lacks ellipsis", got)
	}
}

func TestWatchCoalescesAndForwardsNotices(t *testing.T) {
	b := bus.New()
	vm := NewViewModel(&fakeSource{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notices := make(chan bus.Notice, 1)
	vm.Watch(ctx, b, func(n bus.Notice) { notices <- n })

	b.Emit(bus.KindNotice, bus.Notice{Level: bus.LevelWarn, Text: "connection lost"})
	select {
	case n := <-notices:
		if n.Text != "connection lost" || n.Level != bus.LevelWarn {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("notice not forwarded")
	}

	for range 10 {
		b.Emit(bus.KindAppended, bob)
	}
	select {
	case <-vm.RefreshCh():
	case <-time.After(time.Second):
		t.Fatal("no refresh signal")
	}
	// Signals collapse: at most one more can be queued.
	time.Sleep(20 * time.Millisecond)
	drained := 0
	for {
		select {
		case <-vm.RefreshCh():
			drained++
			continue
		default:
		}
		break
	}
	if drained > 1 {
		t.Errorf("drained %d extra refresh signals, want at most 1", drained)
	}
}
