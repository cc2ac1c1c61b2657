// Package relay implements the websocket relay: it welcomes identities,
// routes send frames to connected recipients and acknowledges them.
package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/store"
	"github.com/matheus3301/chatbox/internal/transport"
	"go.uber.org/zap"
)

// Reasons carried by REJECT and ERR frames.
const (
	ReasonOffline          = "recipient offline"
	ReasonInvalidRecipient = "invalid recipient"
	ReasonMissingID        = "missing messageId"
	ReasonInternal         = "internal error"
	ReasonDeliveryFailed   = "delivery failed"
	ReasonInvalidIdentity  = "invalid identity"
	ReasonAlreadyConnected = "identity already connected"
	ReasonExpectedHello    = "expected HELLO"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 5 * time.Second
	readLimit               = 1 << 20
)

var errAlreadyConnected = errors.New("identity already connected")

type client struct {
	id   identity.Identity
	conn *websocket.Conn
}

// Hub tracks connected identities and routes frames between them.
type Hub struct {
	db               *store.DB
	logger           *zap.Logger
	handshakeTimeout time.Duration

	mu      sync.RWMutex
	clients map[identity.Identity]*client
}

// NewHub creates a hub persisting delivered messages in db.
func NewHub(db *store.DB, handshakeTimeout time.Duration, logger *zap.Logger) *Hub {
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		db:               db,
		logger:           logger.Named("relay"),
		handshakeTimeout: handshakeTimeout,
		clients:          make(map[identity.Identity]*client),
	}
}

// Online returns the number of connected identities.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsOnline reports whether id is connected.
func (h *Hub) IsOnline(id identity.Identity) bool {
	return h.lookup(id) != nil
}

func (h *Hub) lookup(id identity.Identity) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

func (h *Hub) add(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		return errAlreadyConnected
	}
	h.clients[c.id] = c
	ConnectedClients.Inc()
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
		ConnectedClients.Dec()
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	all := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.Unlock()

	for _, c := range all {
		_ = c.conn.Close(websocket.StatusGoingAway, "relay shutting down")
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx := r.Context()
	c, err := h.handshake(ctx, conn)
	if err != nil {
		h.logger.Info("handshake failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	defer h.remove(c)
	h.logger.Info("identity connected", zap.String("identity", c.id.String()), zap.String("remote", r.RemoteAddr))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			h.logger.Info("identity disconnected", zap.String("identity", c.id.String()), zap.Error(err))
			return
		}
		if typ != websocket.MessageText {
			FramesReceived.WithLabelValues("binary").Inc()
			continue
		}
		f, err := transport.Decode(data)
		if err != nil {
			FramesReceived.WithLabelValues("invalid").Inc()
			h.logger.Warn("malformed frame", zap.String("identity", c.id.String()), zap.Error(err))
			continue
		}
		kind := f.Kind()
		FramesReceived.WithLabelValues(kind.String()).Inc()
		if kind != transport.KindSend {
			h.logger.Debug("ignoring frame", zap.String("identity", c.id.String()), zap.Stringer("kind", kind))
			continue
		}
		h.route(ctx, c, f.Send())
	}
}

func (h *Hub) handshake(ctx context.Context, conn *websocket.Conn) (*client, error) {
	hctx, cancel := context.WithTimeout(ctx, h.handshakeTimeout)
	defer cancel()

	reject := func(reason string) error {
		Handshakes.WithLabelValues("reject").Inc()
		_ = wsjson.Write(hctx, conn, transport.RejectFrame{MessageType: transport.TypeReject, Reason: reason})
		_ = conn.Close(websocket.StatusPolicyViolation, reason)
		return errors.New(reason)
	}

	_, data, err := conn.Read(hctx)
	if err != nil {
		Handshakes.WithLabelValues("error").Inc()
		return nil, err
	}
	f, err := transport.Decode(data)
	if err != nil || f.Kind() != transport.KindHello {
		return nil, reject(ReasonExpectedHello)
	}
	id, err := identity.Parse(string(f.From))
	if err != nil {
		return nil, reject(ReasonInvalidIdentity)
	}

	c := &client{id: id, conn: conn}
	if err := h.add(c); err != nil {
		return nil, reject(ReasonAlreadyConnected)
	}
	if err := wsjson.Write(hctx, conn, transport.WelcomeFrame{MessageType: transport.TypeWelcome, To: id}); err != nil {
		h.remove(c)
		Handshakes.WithLabelValues("error").Inc()
		return nil, err
	}
	Handshakes.WithLabelValues("welcome").Inc()
	return c, nil
}

// route delivers a send frame from sender and answers it with ACK or ERR.
// A message id the relay already delivered is acknowledged again without a
// second delivery.
func (h *Hub) route(ctx context.Context, sender *client, f transport.SendFrame) {
	start := time.Now()
	log := h.logger.With(zap.String("from", sender.id.String()), zap.String("to", string(f.To)), zap.String("message_id", f.MessageID))

	to, err := identity.Parse(string(f.To))
	if err != nil {
		h.fail(ctx, sender, f, ReasonInvalidRecipient)
		return
	}
	if f.MessageID == "" {
		h.fail(ctx, sender, f, ReasonMissingID)
		return
	}

	dup, err := h.db.HasMessage(f.MessageID)
	if err != nil {
		log.Error("duplicate check failed", zap.Error(err))
		h.fail(ctx, sender, f, ReasonInternal)
		return
	}
	if dup {
		log.Info("duplicate message acknowledged")
		h.ack(ctx, sender, f, "duplicate")
		return
	}

	key, created, err := h.db.EnsureConversation(sender.id.String(), to.String(), f.ConversationKey)
	if err != nil {
		log.Error("resolve conversation failed", zap.Error(err))
		h.fail(ctx, sender, f, ReasonInternal)
		return
	}
	if created {
		log.Info("conversation created", zap.String("conversation_key", key))
	}

	recipient := h.lookup(to)
	if recipient == nil {
		h.fail(ctx, sender, f, ReasonOffline)
		return
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	err = wsjson.Write(wctx, recipient.conn, transport.DeliveryFrame{
		From:            sender.id,
		Message:         f.Message,
		MessageID:       f.MessageID,
		ConversationKey: key,
	})
	cancel()
	if err != nil {
		log.Warn("delivery failed", zap.Error(err))
		h.fail(ctx, sender, f, ReasonDeliveryFailed)
		return
	}

	if _, err := h.db.AppendMessage(&store.Message{
		ConversationKey: key,
		MessageID:       f.MessageID,
		Sender:          sender.id.String(),
		Recipient:       to.String(),
		Body:            f.Message,
	}); err != nil {
		log.Error("persist message failed", zap.Error(err))
	}
	h.ack(ctx, sender, f, "ack")
	DeliveryLatency.Observe(time.Since(start).Seconds())
}

func (h *Hub) ack(ctx context.Context, sender *client, f transport.SendFrame, result string) {
	Acknowledgements.WithLabelValues(result).Inc()
	h.reply(ctx, sender, transport.StatusFrame{MessageType: transport.TypeAck, To: f.To, MessageID: f.MessageID})
}

func (h *Hub) fail(ctx context.Context, sender *client, f transport.SendFrame, reason string) {
	Acknowledgements.WithLabelValues("err").Inc()
	h.reply(ctx, sender, transport.StatusFrame{MessageType: transport.TypeErr, To: f.To, MessageID: f.MessageID, Reason: reason})
}

func (h *Hub) reply(ctx context.Context, c *client, st transport.StatusFrame) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, c.conn, st); err != nil {
		h.logger.Warn("status write failed", zap.String("identity", c.id.String()), zap.Error(err))
	}
}
