package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/matheus3301/chatbox/internal/identity"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned when sending without a live connection.
	ErrClosed = errors.New("transport: connection closed")
	// ErrAlreadyOpen is returned by Open while a connection is live or being established.
	ErrAlreadyOpen = errors.New("transport: connection already open")
	// ErrRejected wraps the reason of a REJECT handshake reply.
	ErrRejected = errors.New("transport: registration rejected")
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	defaultEventBuffer      = 256
	defaultReadLimit        = 1 << 20
	closedEmitTimeout       = time.Second
)

// Event is one of Opened, Closed, TransportError, Delivery or StatusUpdate.
type Event interface {
	event()
}

// Opened is emitted once the relay welcomed the identity.
type Opened struct {
	Identity identity.Identity
}

// Closed is emitted when a connection goes away. Err is nil for a close
// requested through Close.
type Closed struct {
	Err error
}

// TransportError reports a non-fatal problem, such as a malformed frame.
type TransportError struct {
	Detail string
}

type Delivery struct {
	DeliveryFrame
}

type StatusUpdate struct {
	StatusFrame
}

func (Opened) event()         {}
func (Closed) event()         {}
func (TransportError) event() {}
func (Delivery) event()       {}
func (StatusUpdate) event()   {}

// Options configures a Session.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	EventBuffer      int
	ReadLimit        int64
}

type connState int

const (
	stateClosed connState = iota
	stateOpening
	stateOpen
)

// Session is the client side of the relay websocket. At most one connection
// is live at a time; events from every connection it opens are delivered on
// the same channel, in arrival order.
type Session struct {
	opts   Options
	logger *zap.Logger
	events chan Event

	mu      sync.Mutex
	state   connState
	conn    *websocket.Conn
	local   identity.Identity
	cancel  context.CancelFunc
	closing bool
}

// NewSession creates a session for the relay at opts.URL.
func NewSession(opts Options, logger *zap.Logger) *Session {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		opts:   opts,
		logger: logger.Named("transport"),
		events: make(chan Event, opts.EventBuffer),
	}
}

// Events returns the channel every connection event is delivered on.
func (s *Session) Events() <-chan Event {
	return s.events
}

// IsOpen reports whether a connection is live.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateOpen
}

// Open dials the relay and performs the HELLO/WELCOME handshake for local.
// On success an Opened event is queued before any frame of the connection.
func (s *Session) Open(ctx context.Context, local identity.Identity) error {
	s.mu.Lock()
	if s.state != stateClosed {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.state = stateOpening
	s.mu.Unlock()

	conn, err := s.handshake(ctx, local)
	if err != nil {
		s.mu.Lock()
		s.state = stateClosed
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.state = stateOpen
	s.conn = conn
	s.local = local
	s.cancel = cancel
	s.closing = false
	s.mu.Unlock()

	s.logger.Info("connected to relay", zap.String("url", s.opts.URL), zap.String("identity", local.String()))
	s.events <- Opened{Identity: local}
	go s.readLoop(runCtx, conn)
	return nil
}

func (s *Session) handshake(ctx context.Context, local identity.Identity) (*websocket.Conn, error) {
	hctx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(hctx, s.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	conn.SetReadLimit(s.opts.ReadLimit)

	fail := func(err error) (*websocket.Conn, error) {
		_ = conn.CloseNow()
		return nil, err
	}

	if err := wsjson.Write(hctx, conn, HelloFrame{MessageType: TypeHello, From: local}); err != nil {
		return fail(fmt.Errorf("send hello: %w", err))
	}
	_, data, err := conn.Read(hctx)
	if err != nil {
		return fail(fmt.Errorf("await welcome: %w", err))
	}
	f, err := Decode(data)
	if err != nil {
		return fail(err)
	}
	switch f.Kind() {
	case KindWelcome:
		if f.To != local {
			return fail(fmt.Errorf("relay welcomed %q, expected %s", f.To, local))
		}
		return conn, nil
	case KindReject:
		return fail(fmt.Errorf("%w: %s", ErrRejected, f.Reason))
	default:
		return fail(fmt.Errorf("unexpected %s frame during handshake", f.Kind()))
	}
}

// Send writes a send frame on the live connection.
func (s *Session) Send(ctx context.Context, f SendFrame) error {
	s.mu.Lock()
	conn := s.conn
	open := s.state == stateOpen
	s.mu.Unlock()
	if !open {
		return ErrClosed
	}
	if err := wsjson.Write(ctx, conn, f); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close closes the live connection, if any. The read loop then emits Closed
// with a nil error.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	if conn == nil || s.state != stateOpen {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	cancel := s.cancel
	s.mu.Unlock()

	err := conn.Close(websocket.StatusNormalClosure, "client closing")
	cancel()
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	var cause error
	defer func() {
		s.mu.Lock()
		requested := s.closing
		if s.conn == conn {
			s.conn = nil
			s.state = stateClosed
			s.closing = false
			s.cancel = nil
		}
		s.mu.Unlock()

		if requested {
			cause = nil
		}
		s.logger.Info("relay connection closed", zap.Error(cause))
		select {
		case s.events <- Closed{Err: cause}:
		case <-time.After(closedEmitTimeout):
			s.logger.Warn("closed event not consumed")
		}
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				cause = err
			}
			return
		}
		if typ != websocket.MessageText {
			s.emit(ctx, TransportError{Detail: "unexpected binary frame"})
			continue
		}
		f, err := Decode(data)
		if err != nil {
			s.logger.Warn("malformed frame", zap.Error(err))
			s.emit(ctx, TransportError{Detail: err.Error()})
			continue
		}
		switch f.Kind() {
		case KindDelivery:
			s.emit(ctx, Delivery{f.Delivery()})
		case KindStatus:
			s.emit(ctx, StatusUpdate{f.Status()})
		default:
			s.emit(ctx, TransportError{Detail: fmt.Sprintf("unexpected %s frame", f.Kind())})
		}
	}
}

func (s *Session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
