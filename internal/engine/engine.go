// Package engine reconciles the local view of a chat session with the relay
// and the contact directory. Transport events, user commands and directory
// responses all mutate state under one mutex.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/contacts"
	"github.com/matheus3301/chatbox/internal/conversation"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/msgid"
	"github.com/matheus3301/chatbox/internal/outbox"
	"github.com/matheus3301/chatbox/internal/status"
	"github.com/matheus3301/chatbox/internal/transport"
	"go.uber.org/zap"
)

// Transport is the connection to the relay.
type Transport interface {
	Open(ctx context.Context, local identity.Identity) error
	Send(ctx context.Context, f transport.SendFrame) error
	IsOpen() bool
	Events() <-chan transport.Event
	Close() error
}

// Directory is the remote contact directory plus its message history.
type Directory interface {
	contacts.Directory
	FetchMessages(ctx context.Context, conversationKey string, limit int) ([]conversation.Message, error)
}

// HistoryPolicy decides how fetched history meets the local log.
type HistoryPolicy string

const (
	// PolicyReplace installs fetched history as the whole log, dropping local
	// messages the relay has not persisted yet.
	PolicyReplace HistoryPolicy = "replace"
	// PolicyMerge unions fetched history with the local log by message id.
	PolicyMerge HistoryPolicy = "merge"
)

// ParsePolicy parses a history policy name. Empty means PolicyReplace.
func ParsePolicy(s string) (HistoryPolicy, error) {
	switch p := HistoryPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyReplace, nil
	case PolicyReplace, PolicyMerge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown history policy %q", s)
	}
}

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	HistoryPolicy    HistoryPolicy
	HistoryLimit     int
	PendingTimeout   time.Duration
	DirectoryTimeout time.Duration
}

const (
	DefaultPendingTimeout   = 30 * time.Second
	DefaultDirectoryTimeout = 10 * time.Second
	DefaultHistoryLimit     = 200
)

// Engine owns the conversation store, the contact cache and the session state
// of one local identity at a time.
type Engine struct {
	transport Transport
	dir       Directory
	cache     *contacts.Cache
	machine   *status.Machine
	tracker   *outbox.Tracker
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options
	now       func() time.Time

	mu        sync.Mutex
	store     *conversation.Store
	local     identity.Identity
	active    identity.Identity
	selectSeq uint64
	base      context.Context
	cancel    context.CancelFunc

	wg sync.WaitGroup
}

// New creates an engine. PendingTimeout < 0 disables expiry of unacknowledged
// messages; 0 selects DefaultPendingTimeout.
func New(t Transport, dir Directory, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryPolicy == "" {
		opts.HistoryPolicy = PolicyReplace
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.PendingTimeout == 0 {
		opts.PendingTimeout = DefaultPendingTimeout
	}
	if opts.DirectoryTimeout <= 0 {
		opts.DirectoryTimeout = DefaultDirectoryTimeout
	}
	logger = logger.Named("engine")

	e := &Engine{
		transport: t,
		dir:       dir,
		cache:     contacts.NewCache(dir, b, logger),
		machine:   status.NewMachine(b),
		bus:       b,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		store:     conversation.NewStore(b),
		base:      context.Background(),
	}
	e.tracker = outbox.NewTracker(opts.PendingTimeout, e.expire, logger)
	return e
}

// Start consumes transport events until ctx is done or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.base = ctx
	e.cancel = cancel
	e.mu.Unlock()

	e.tracker.Start(ctx)
	go func() {
		events := e.transport.Events()
		for {
			select {
			case ev := <-events:
				e.handle(ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop closes the connection, stops the event loop and waits for background
// directory calls to finish.
func (e *Engine) Stop() {
	if err := e.transport.Close(); err != nil {
		e.logger.Warn("failed to close transport", zap.Error(err))
	}
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.tracker.Stop()
	e.wg.Wait()
}

func (e *Engine) handle(ev transport.Event) {
	switch ev := ev.(type) {
	case transport.Opened:
		e.onOpened(ev.Identity)
	case transport.Closed:
		e.onClosed(ev.Err)
	case transport.TransportError:
		e.logger.Warn("transport error", zap.String("detail", ev.Detail))
		e.notify(bus.LevelWarn, "transport error: %s", ev.Detail)
	case transport.Delivery:
		_ = e.HandleDelivery(ev.DeliveryFrame)
	case transport.StatusUpdate:
		_ = e.HandleStatus(ev.StatusFrame)
	}
}

// Register validates raw and connects to the relay as that identity. The
// session becomes Registered once the relay welcomes it.
func (e *Engine) Register(ctx context.Context, raw string) error {
	id, err := identity.Parse(raw)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if !e.machine.Is(status.Unregistered) {
		e.mu.Unlock()
		return ErrAlreadyRegistered
	}
	if err := e.machine.Transition(status.Connecting); err != nil {
		e.mu.Unlock()
		return err
	}
	if id != e.local {
		e.store = conversation.NewStore(e.bus)
		e.active = ""
	}
	e.local = id
	e.selectSeq++
	e.cache.Reset()
	e.mu.Unlock()

	e.logger.Info("registering", zap.String("identity", id.String()))
	if err := e.transport.Open(ctx, id); err != nil {
		e.mu.Lock()
		e.machine.Settle()
		e.mu.Unlock()
		e.logger.Error("registration failed", zap.String("identity", id.String()), zap.Error(err))
		e.notify(bus.LevelError, "could not connect as %s: %v", id, err)
		return fmt.Errorf("register %s: %w", id, err)
	}
	return nil
}

// Unregister closes the connection. Pending messages stay in their logs.
func (e *Engine) Unregister() error {
	return e.transport.Close()
}

func (e *Engine) onOpened(id identity.Identity) {
	e.mu.Lock()
	if id != e.local || !e.machine.Is(status.Connecting) {
		e.mu.Unlock()
		e.logger.Warn("ignoring unexpected opened event", zap.String("identity", id.String()))
		return
	}
	if err := e.machine.Transition(status.Registered); err != nil {
		e.mu.Unlock()
		e.logger.Error("state transition failed", zap.Error(err))
		return
	}
	e.mu.Unlock()

	e.logger.Info("registered", zap.String("identity", id.String()))
	e.notify(bus.LevelInfo, "registered as %s", id)
	e.background(func(ctx context.Context) {
		err := e.cache.Load(ctx, id)
		switch {
		case err == nil, contacts.IsStale(err):
		default:
			e.logger.Warn("contact list unavailable", zap.Error(err))
			e.notify(bus.LevelWarn, "contacts unavailable, chat still works: %v", err)
		}
	})
}

func (e *Engine) onClosed(cause error) {
	e.mu.Lock()
	e.machine.Settle()
	e.mu.Unlock()

	if cause != nil {
		e.logger.Warn("connection lost", zap.Error(cause))
		e.notify(bus.LevelWarn, "connection lost: %v", cause)
		return
	}
	e.notify(bus.LevelInfo, "disconnected")
}

// HandleStatus applies an ACK or ERR to the matching pending message. Frames
// matching nothing pending are logged and dropped.
func (e *Engine) HandleStatus(f transport.StatusFrame) error {
	to := conversation.Failed
	if f.Acked() {
		to = conversation.Sent
	}

	e.mu.Lock()
	err := e.store.UpdateStatus(f.To, f.MessageID, to)
	if err == nil {
		e.tracker.Resolve(f.MessageID)
	}
	e.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("%w: %s %s/%s: %v", ErrStaleAcknowledgement, f.MessageType, f.To, f.MessageID, err)
		e.logger.Info("discarding acknowledgement", zap.Error(err))
		return err
	}
	if to == conversation.Failed {
		reason := f.Reason
		if reason == "" {
			reason = "rejected by relay"
		}
		e.notify(bus.LevelWarn, "message to %s failed: %s", f.To, reason)
	}
	return nil
}

// HandleDelivery appends an inbound message and starts contact discovery for
// senders not yet in the cache. Discovery never delays the append.
func (e *Engine) HandleDelivery(f transport.DeliveryFrame) error {
	from, err := identity.Parse(string(f.From))
	if err != nil {
		e.logger.Warn("dropping delivery with invalid sender", zap.String("from", string(f.From)))
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if f.MessageID == "" {
		e.logger.Warn("dropping delivery without message id", zap.String("from", from.String()))
		return fmt.Errorf("%w: missing message id", ErrInvalidFrame)
	}

	e.mu.Lock()
	local := e.local
	appended := e.store.Append(from, conversation.Message{
		Sender:  from,
		Content: f.Message,
		ID:      f.MessageID,
		Status:  conversation.Received,
		At:      e.now(),
	})
	e.mu.Unlock()

	if !appended {
		e.logger.Debug("duplicate delivery", zap.String("message_id", f.MessageID))
	}
	if from == local || e.cache.Contains(from) {
		return nil
	}
	hint := f.ConversationKey
	e.background(func(ctx context.Context) {
		if _, err := e.cache.EnsureContact(ctx, local, from, hint); err != nil && !contacts.IsStale(err) {
			e.logger.Warn("contact discovery failed", zap.String("contact", from.String()), zap.Error(err))
			e.notify(bus.LevelWarn, "could not add %s to contacts: %v", from, err)
		}
	})
	return nil
}

// Send appends content to the recipient's log as Sending and hands it to the
// transport. It returns the new message id. The ACK or ERR arrives later as
// a transport event.
func (e *Engine) Send(ctx context.Context, recipient identity.Identity, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyMessage
	}
	if recipient == "" {
		return "", ErrNoRecipient
	}
	if !identity.Validate(string(recipient)) {
		return "", &identity.ValidationError{Input: string(recipient)}
	}

	e.mu.Lock()
	// The state flips to Unregistered only when the event loop sees Closed,
	// so the transport is asked too.
	if !e.machine.Is(status.Registered) || !e.transport.IsOpen() {
		e.mu.Unlock()
		return "", transport.ErrClosed
	}
	local := e.local
	id := msgid.Generate(local, recipient)
	var key string
	if ct, ok := e.cache.Get(recipient); ok {
		key = ct.ConversationKey
	}
	store := e.store
	store.Append(recipient, conversation.Message{
		Sender:  local,
		Content: content,
		ID:      id,
		Status:  conversation.Sending,
		At:      e.now(),
	})
	e.tracker.Track(recipient, id)
	e.mu.Unlock()

	err := e.transport.Send(ctx, transport.SendFrame{
		To:              recipient,
		Message:         content,
		MessageID:       id,
		ConversationKey: key,
	})
	if errors.Is(err, transport.ErrClosed) {
		// Nothing reached the wire.
		e.withdraw(store, recipient, id)
		return "", fmt.Errorf("send message: %w", err)
	}
	if err != nil {
		e.logger.Error("send failed", zap.String("message_id", id), zap.Error(err))
		e.markFailed(recipient, id)
		e.notify(bus.LevelError, "message to %s failed: %v", recipient, err)
		return id, fmt.Errorf("send message: %w", err)
	}
	return id, nil
}

// SendActive sends content to the currently selected contact.
func (e *Engine) SendActive(ctx context.Context, content string) (string, error) {
	return e.Send(ctx, e.Active(), content)
}

// Retry resends the content of a failed local message under a new id. The
// failed entry stays in the log.
func (e *Engine) Retry(ctx context.Context, counterpart identity.Identity, messageID string) (string, error) {
	e.mu.Lock()
	m, ok := e.store.Get(counterpart, messageID)
	local := e.local
	e.mu.Unlock()

	if !ok {
		return "", conversation.ErrMessageNotFound
	}
	if m.Status != conversation.Failed || m.Sender != local {
		return "", fmt.Errorf("%w: %s is %s", ErrNotFailed, messageID, m.Status)
	}
	return e.Send(ctx, counterpart, m.Content)
}

func (e *Engine) markFailed(counterpart identity.Identity, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Resolve(id)
	if err := e.store.UpdateStatus(counterpart, id, conversation.Failed); err != nil {
		e.logger.Debug("message already settled", zap.String("message_id", id), zap.Error(err))
	}
}

func (e *Engine) withdraw(store *conversation.Store, counterpart identity.Identity, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Resolve(id)
	if err := store.Withdraw(counterpart, id); err != nil {
		e.logger.Debug("message already settled", zap.String("message_id", id), zap.Error(err))
	}
}

func (e *Engine) expire(counterpart identity.Identity, id string) {
	e.mu.Lock()
	err := e.store.UpdateStatus(counterpart, id, conversation.Failed)
	e.mu.Unlock()
	if err != nil {
		return
	}
	e.notify(bus.LevelWarn, "message to %s was not acknowledged", counterpart)
}

// AddContact creates a contact for raw in the directory and caches it.
func (e *Engine) AddContact(ctx context.Context, raw string) (contacts.Contact, error) {
	id, err := identity.Parse(raw)
	if err != nil {
		return contacts.Contact{}, err
	}

	e.mu.Lock()
	local := e.local
	registered := e.machine.Is(status.Registered)
	e.mu.Unlock()

	if !registered {
		return contacts.Contact{}, ErrNotRegistered
	}
	if e.cache.Contains(id) {
		return contacts.Contact{}, &contacts.DuplicateContactError{Identity: id}
	}
	ct, err := e.cache.EnsureContact(ctx, local, id, "")
	if err != nil {
		return contacts.Contact{}, err
	}
	e.logger.Info("contact added", zap.String("contact", id.String()), zap.String("conversation_key", ct.ConversationKey))
	return ct, nil
}

// SelectContact makes raw the active counterpart and hydrates its log from
// the directory's history, applying the configured policy. A fetch that
// completes after a newer selection is discarded.
func (e *Engine) SelectContact(ctx context.Context, raw string) error {
	id, err := identity.Parse(raw)
	if err != nil {
		return err
	}
	ct, ok := e.cache.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContact, id)
	}

	e.mu.Lock()
	e.active = id
	e.selectSeq++
	seq := e.selectSeq
	local := e.local
	store := e.store
	e.mu.Unlock()
	e.bus.Emit(bus.KindSelected, id)

	history, err := e.dir.FetchMessages(ctx, ct.ConversationKey, e.opts.HistoryLimit)
	if err != nil {
		e.logger.Warn("history fetch failed", zap.String("contact", id.String()), zap.Error(err))
		e.notify(bus.LevelWarn, "history for %s unavailable: %v", id, err)
		return fmt.Errorf("%w: fetch history: %v", contacts.ErrDirectoryUnavailable, err)
	}
	for i := range history {
		if history[i].Sender == local {
			history[i].Status = conversation.Sent
		} else {
			history[i].Status = conversation.Received
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.selectSeq || store != e.store {
		e.logger.Debug("discarding superseded history", zap.String("contact", id.String()))
		return ErrSelectionSuperseded
	}
	switch e.opts.HistoryPolicy {
	case PolicyMerge:
		e.store.Merge(id, history)
	default:
		e.store.Replace(id, history)
	}
	e.logger.Debug("history applied", zap.String("contact", id.String()), zap.Int("messages", len(history)))
	return nil
}

// Local returns the registered (or registering) identity.
func (e *Engine) Local() identity.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local
}

// State returns the session state.
func (e *Engine) State() status.State {
	return e.machine.Current()
}

// Session returns the number of the current or most recent registration
// attempt. Status change events carry the same number.
func (e *Engine) Session() uint64 {
	return e.machine.Session()
}

// Active returns the selected counterpart, if any.
func (e *Engine) Active() identity.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Contacts returns a snapshot of the contact cache.
func (e *Engine) Contacts() []contacts.Contact {
	return e.cache.List()
}

// Conversations returns every counterpart with a log, in order of first message.
func (e *Engine) Conversations() []identity.Identity {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	return store.Counterparts()
}

// Conversation returns a snapshot of the counterpart's log with each message
// tagged as local or remote.
func (e *Engine) Conversation(counterpart identity.Identity) []conversation.View {
	e.mu.Lock()
	local := e.local
	msgs := e.store.Messages(counterpart)
	e.mu.Unlock()

	views := make([]conversation.View, len(msgs))
	for i, m := range msgs {
		views[i] = conversation.View{Message: m, Local: m.Sender == local}
	}
	return views
}

// PendingAcks returns how many sent messages still wait for the relay.
func (e *Engine) PendingAcks() int {
	return e.tracker.Pending()
}

func (e *Engine) background(fn func(ctx context.Context)) {
	e.mu.Lock()
	base := e.base
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(base, e.opts.DirectoryTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (e *Engine) notify(level bus.Level, format string, args ...any) {
	e.bus.Emit(bus.KindNotice, bus.Notice{Level: level, Text: fmt.Sprintf(format, args...)})
}

// IsUserError reports whether err is a rejection of user input rather than an
// infrastructure failure.
func IsUserError(err error) bool {
	var verr *identity.ValidationError
	var dup *contacts.DuplicateContactError
	return errors.As(err, &verr) || errors.As(err, &dup) ||
		errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrNoRecipient) ||
		errors.Is(err, ErrUnknownContact)
}
