package app

import (
	"context"
	"sync"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/engine"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/lock"
	"github.com/matheus3301/chatbox/internal/paths"
	"github.com/matheus3301/chatbox/internal/status"
	"go.uber.org/zap"
)

// Client is the engine as the terminal sees it. Registering additionally
// locks the identity's directory so two terminals on one machine cannot
// claim the same identity; the lock is dropped once the session leaves
// Registered.
type Client struct {
	*engine.Engine
	bus     *bus.Bus
	logger  *zap.Logger
	lockDir func(identity.Identity) string

	mu   sync.Mutex
	held *lock.Lock
	// after is the session number seen when held was taken. The lock
	// belongs to the sessions that follow it.
	after uint64

	unsubscribe func()
}

// NewClient wraps e.
func NewClient(e *engine.Engine, b *bus.Bus, logger *zap.Logger) *Client {
	return &Client{
		Engine:  e,
		bus:     b,
		logger:  logger.Named("client"),
		lockDir: paths.IdentityDir,
	}
}

// Start starts the engine and the watcher that releases the identity lock.
func (c *Client) Start(ctx context.Context) {
	events, unsubscribe := c.bus.Subscribe("session.", 16)
	c.unsubscribe = unsubscribe
	c.Engine.Start(ctx)

	go func() {
		for {
			select {
			case evt := <-events:
				sc, ok := evt.Payload.(status.StatusChange)
				if !ok || sc.To != status.Unregistered {
					continue
				}
				c.settled(sc.Session)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and releases the identity lock.
func (c *Client) Stop() {
	c.Engine.Stop()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.release()
}

// Register locks the identity's directory and then registers with the relay.
func (c *Client) Register(ctx context.Context, raw string) error {
	id, err := identity.Parse(raw)
	if err != nil {
		return err
	}
	if c.Engine.State() != status.Unregistered {
		return engine.ErrAlreadyRegistered
	}

	// A lock left over from the previous session is dropped first.
	c.release()
	after := c.Engine.Session()
	lk, err := lock.Acquire(c.lockDir(id))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.held = lk
	c.after = after
	c.mu.Unlock()
	c.logger.Info("identity lock acquired", zap.String("path", lk.Path()))

	if err := c.Engine.Register(ctx, raw); err != nil {
		c.release()
		return err
	}
	return nil
}

// LockHeld reports whether the client currently holds an identity lock.
func (c *Client) LockHeld() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held != nil
}

// settled releases the lock when the session that ended is one the lock
// was taken for. End events of earlier sessions are ignored.
func (c *Client) settled(session uint64) {
	c.mu.Lock()
	if c.held == nil || session <= c.after {
		c.mu.Unlock()
		return
	}
	lk := c.held
	c.held = nil
	c.mu.Unlock()
	c.drop(lk)
}

func (c *Client) release() {
	c.mu.Lock()
	lk := c.held
	c.held = nil
	c.mu.Unlock()
	c.drop(lk)
}

func (c *Client) drop(lk *lock.Lock) {
	if lk == nil {
		return
	}
	if err := lk.Release(); err != nil {
		c.logger.Warn("error releasing identity lock", zap.Error(err))
		return
	}
	c.logger.Info("identity lock released", zap.String("path", lk.Path()))
}
