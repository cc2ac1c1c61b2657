package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/chatbox/internal/identity"
	"go.uber.org/zap"
)

const maxSweepInterval = 500 * time.Millisecond

// ExpireFunc is called for each message that stayed pending past the timeout.
type ExpireFunc func(counterpart identity.Identity, messageID string)

type entry struct {
	counterpart identity.Identity
	deadline    time.Time
}

// Tracker watches messages waiting for a relay acknowledgement and reports
// the ones that never got one.
type Tracker struct {
	timeout  time.Duration
	onExpire ExpireFunc
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]entry
	cancel  context.CancelFunc
}

// NewTracker creates a tracker. A timeout <= 0 disables expiry: Track is then
// a no-op.
func NewTracker(timeout time.Duration, onExpire ExpireFunc, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		timeout:  timeout,
		onExpire: onExpire,
		logger:   logger,
		now:      time.Now,
		pending:  make(map[string]entry),
	}
}

// Enabled reports whether pending messages expire at all.
func (t *Tracker) Enabled() bool {
	return t.timeout > 0
}

// Track starts the clock for a message just handed to the transport.
func (t *Tracker) Track(counterpart identity.Identity, messageID string) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	t.pending[messageID] = entry{counterpart: counterpart, deadline: t.now().Add(t.timeout)}
	t.mu.Unlock()
}

// Resolve stops tracking a message. It reports whether the message was pending.
func (t *Tracker) Resolve(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[messageID]
	delete(t.pending, messageID)
	return ok
}

// Pending returns how many messages are being tracked.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Start begins the expiry loop.
func (t *Tracker) Start(ctx context.Context) {
	if !t.Enabled() {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	go t.loop(ctx)
}

// Stop stops the expiry loop. Tracked messages are kept.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *Tracker) loop(ctx context.Context) {
	interval := min(t.timeout/2, maxSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// sweep removes and reports every entry past its deadline.
func (t *Tracker) sweep() {
	now := t.now()
	type expiry struct {
		counterpart identity.Identity
		id          string
	}
	var expired []expiry

	t.mu.Lock()
	for id, e := range t.pending {
		if now.Before(e.deadline) {
			continue
		}
		delete(t.pending, id)
		expired = append(expired, expiry{e.counterpart, id})
	}
	t.mu.Unlock()

	for _, x := range expired {
		t.logger.Warn("message not acknowledged in time",
			zap.String("counterpart", x.counterpart.String()),
			zap.String("message_id", x.id),
			zap.Duration("timeout", t.timeout))
		if t.onExpire != nil {
			t.onExpire(x.counterpart, x.id)
		}
	}
}
