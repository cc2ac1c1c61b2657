package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/store"
	"github.com/matheus3301/chatbox/internal/transport"
	"github.com/stretchr/testify/require"
)

const (
	alice identity.Identity = "9000000001"
	bob   identity.Identity = "9000000002"
)

type relayFixture struct {
	hub *Hub
	db  *store.DB
	srv *httptest.Server
}

func newRelay(t *testing.T) *relayFixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	_, err = db.Migrate(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	hub := NewHub(db, time.Second, nil)
	srv := httptest.NewServer(NewRouter(hub, nil))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return &relayFixture{hub: hub, db: db, srv: srv}
}

func (f *relayFixture) connect(t *testing.T, id identity.Identity) *transport.Session {
	t.Helper()
	s := transport.NewSession(transport.Options{URL: "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/chat"}, nil)
	require.NoError(t, s.Open(context.Background(), id))
	t.Cleanup(func() { _ = s.Close() })
	ev := next(t, s)
	require.IsType(t, transport.Opened{}, ev)
	return s
}

func next(t *testing.T, s *transport.Session) transport.Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestRouteDeliversAndAcks(t *testing.T) {
	f := newRelay(t)
	a := f.connect(t, alice)
	b := f.connect(t, bob)

	require.NoError(t, a.Send(context.Background(), transport.SendFrame{To: bob, Message: "yo", MessageID: "m1"}))

	d, ok := next(t, b).(transport.Delivery)
	require.True(t, ok, "bob expected a delivery")
	require.Equal(t, alice, d.From)
	require.Equal(t, "yo", d.Message)
	require.Equal(t, "m1", d.MessageID)
	require.NotEmpty(t, d.ConversationKey)

	st, ok := next(t, a).(transport.StatusUpdate)
	require.True(t, ok, "alice expected a status frame")
	require.True(t, st.Acked())
	require.Equal(t, bob, st.To)
	require.Equal(t, "m1", st.MessageID)

	msgs, err := f.db.ListMessages(d.ConversationKey, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "yo", msgs[0].Body)
}

func TestRouteAdoptsConversationKeyHint(t *testing.T) {
	f := newRelay(t)
	a := f.connect(t, alice)
	b := f.connect(t, bob)

	require.NoError(t, a.Send(context.Background(), transport.SendFrame{To: bob, Message: "hi", MessageID: "m1", ConversationKey: "chosen"}))
	d := next(t, b).(transport.Delivery)
	require.Equal(t, "chosen", d.ConversationKey)
}

func TestRecipientOffline(t *testing.T) {
	f := newRelay(t)
	a := f.connect(t, alice)

	require.NoError(t, a.Send(context.Background(), transport.SendFrame{To: bob, Message: "yo", MessageID: "m1"}))
	st, ok := next(t, a).(transport.StatusUpdate)
	require.True(t, ok)
	require.False(t, st.Acked())
	require.Equal(t, ReasonOffline, st.Reason)
	require.Equal(t, "m1", st.MessageID)

	has, err := f.db.HasMessage("m1")
	require.NoError(t, err)
	require.False(t, has, "undelivered messages are not persisted")
}

func TestInvalidRecipient(t *testing.T) {
	f := newRelay(t)
	a := f.connect(t, alice)

	require.NoError(t, a.Send(context.Background(), transport.SendFrame{To: "12", Message: "yo", MessageID: "m1"}))
	st := next(t, a).(transport.StatusUpdate)
	require.False(t, st.Acked())
	require.Equal(t, ReasonInvalidRecipient, st.Reason)
}

func TestDuplicateMessageNotRedelivered(t *testing.T) {
	f := newRelay(t)
	a := f.connect(t, alice)
	b := f.connect(t, bob)

	frame := transport.SendFrame{To: bob, Message: "yo", MessageID: "m1"}
	require.NoError(t, a.Send(context.Background(), frame))
	next(t, b)
	require.True(t, next(t, a).(transport.StatusUpdate).Acked())

	require.NoError(t, a.Send(context.Background(), frame))
	require.True(t, next(t, a).(transport.StatusUpdate).Acked())

	select {
	case ev := <-b.Events():
		t.Fatalf("duplicate redelivered: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDuplicateIdentityRejected(t *testing.T) {
	f := newRelay(t)
	f.connect(t, alice)

	second := transport.NewSession(transport.Options{URL: "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/chat"}, nil)
	err := second.Open(context.Background(), alice)
	require.ErrorIs(t, err, transport.ErrRejected)
	require.Contains(t, err.Error(), ReasonAlreadyConnected)
	require.Equal(t, 1, f.hub.Online())
}

func TestInvalidIdentityRejected(t *testing.T) {
	f := newRelay(t)
	s := transport.NewSession(transport.Options{URL: "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/chat"}, nil)
	err := s.Open(context.Background(), "not-a-number")
	require.ErrorIs(t, err, transport.ErrRejected)
	require.Equal(t, 0, f.hub.Online())
}

func TestDisconnectFreesIdentity(t *testing.T) {
	f := newRelay(t)
	a := f.connect(t, alice)
	require.True(t, f.hub.IsOnline(alice))

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return !f.hub.IsOnline(alice) }, 3*time.Second, 10*time.Millisecond)

	f.connect(t, alice)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	f := newRelay(t)
	f.connect(t, alice)

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mresp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "chatbox_relay_connected_clients")
	require.Contains(t, string(body), `chatbox_relay_handshakes_total{result="welcome"}`)
}
