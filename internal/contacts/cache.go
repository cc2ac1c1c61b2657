package contacts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/identity"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrDirectoryUnavailable wraps every failure of a remote directory call.
var ErrDirectoryUnavailable = errors.New("directory unavailable")

// errStaleGeneration is returned when a directory response arrives after the
// cache has moved on to a new registration.
var errStaleGeneration = errors.New("contacts: cache generation changed")

// Contact is a counterpart known to the local identity. ConversationKey is
// assigned by the directory and is never derived locally.
type Contact struct {
	Identity        identity.Identity
	ConversationKey string
}

// DuplicateContactError is returned when adding a contact that is already cached.
type DuplicateContactError struct {
	Identity identity.Identity
}

func (e *DuplicateContactError) Error() string {
	return fmt.Sprintf("contact %s already exists", e.Identity)
}

// Directory is the remote contact directory. CreateOrFetch must be idempotent.
type Directory interface {
	CreateOrFetch(ctx context.Context, owner, counterpart identity.Identity, hint string) (Contact, error)
	List(ctx context.Context, owner identity.Identity) ([]Contact, error)
}

// Cache is the session's advisory mirror of the remote directory.
//
// Each registration starts a new generation. Directory calls remember the
// generation they were issued in and their results are dropped if it changed,
// so a slow response from a previous registration never leaks into the next.
type Cache struct {
	dir    Directory
	bus    *bus.Bus
	logger *zap.Logger

	mu    sync.RWMutex
	byID  map[identity.Identity]Contact
	order []identity.Identity
	gen   uint64

	inflight singleflight.Group
}

// NewCache creates an empty cache backed by dir.
func NewCache(dir Directory, b *bus.Bus, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		dir:    dir,
		bus:    b,
		logger: logger,
		byID:   make(map[identity.Identity]Contact),
	}
}

// Reset empties the cache and starts a new generation.
func (c *Cache) Reset() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.byID = make(map[identity.Identity]Contact)
	c.order = nil
	return c.gen
}

// Generation returns the current cache generation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Get returns the cached contact for id.
func (c *Cache) Get(id identity.Identity) (Contact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ct, ok := c.byID[id]
	return ct, ok
}

// Contains reports whether id is cached.
func (c *Cache) Contains(id identity.Identity) bool {
	_, ok := c.Get(id)
	return ok
}

// List returns a snapshot of cached contacts in insertion order.
func (c *Cache) List() []Contact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Contact, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Load fetches owner's contact list from the directory and merges it into the
// cache. Contacts discovered while the request was in flight are kept.
func (c *Cache) Load(ctx context.Context, owner identity.Identity) error {
	gen := c.Generation()
	list, err := c.dir.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("%w: list contacts for %s: %v", ErrDirectoryUnavailable, owner, err)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return errStaleGeneration
	}
	added := 0
	for _, ct := range list {
		if _, ok := c.byID[ct.Identity]; ok {
			continue
		}
		c.insertLocked(ct)
		added++
	}
	c.mu.Unlock()

	c.logger.Info("contact list loaded", zap.Int("remote", len(list)), zap.Int("added", added))
	c.bus.Emit(bus.KindContactsLoaded, len(list))
	return nil
}

// EnsureContact returns the cached contact for counterpart, creating it in the
// directory when missing. Concurrent calls for the same counterpart within one
// generation share a single directory call. On failure nothing is inserted.
func (c *Cache) EnsureContact(ctx context.Context, owner, counterpart identity.Identity, hint string) (Contact, error) {
	if ct, ok := c.Get(counterpart); ok {
		return ct, nil
	}
	gen := c.Generation()
	key := strconv.FormatUint(gen, 10) + "/" + string(counterpart)

	v, err, shared := c.inflight.Do(key, func() (any, error) {
		if ct, ok := c.Get(counterpart); ok {
			return ct, nil
		}
		ct, err := c.dir.CreateOrFetch(ctx, owner, counterpart, hint)
		if err != nil {
			return Contact{}, fmt.Errorf("%w: create contact %s: %v", ErrDirectoryUnavailable, counterpart, err)
		}
		if ct.Identity != counterpart {
			return Contact{}, fmt.Errorf("%w: directory returned %s for %s", ErrDirectoryUnavailable, ct.Identity, counterpart)
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return Contact{}, errStaleGeneration
		}
		if existing, ok := c.byID[counterpart]; ok {
			c.mu.Unlock()
			return existing, nil
		}
		c.insertLocked(ct)
		c.mu.Unlock()

		c.bus.Emit(bus.KindContactAdded, ct)
		return ct, nil
	})
	if err != nil {
		return Contact{}, err
	}
	if shared {
		c.logger.Debug("joined in-flight contact creation", zap.String("contact", string(counterpart)))
	}
	return v.(Contact), nil
}

// IsStale reports whether err came from a response for an older generation.
func IsStale(err error) bool {
	return errors.Is(err, errStaleGeneration)
}

func (c *Cache) insertLocked(ct Contact) {
	c.byID[ct.Identity] = ct
	c.order = append(c.order, ct.Identity)
}
