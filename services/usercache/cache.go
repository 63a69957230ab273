// Package usercache keeps recently resolved user records in memory so session
// resolution does not hit the database on every request.
package usercache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/observability"
	"github.com/govoffice/docdesk/models"
)

// Loader fetches a user on a cache miss.
type Loader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type entry struct {
	id         uuid.UUID
	user       *models.User
	insertedAt time.Time
	element    *list.Element
}

// Cache is a size-bounded LRU cache of users with a per-entry TTL.
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	lru     *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits   uint64
	misses uint64
}

// New creates a cache holding at most maxSize users for ttl each.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		entries: make(map[uuid.UUID]*entry),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Cache) expired(e *entry) bool {
	return c.now().Sub(e.insertedAt) > c.ttl
}

// Get returns a cached user. Expired entries are dropped and reported as misses.
func (c *Cache) Get(id uuid.UUID) (*models.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || c.expired(e) {
		if ok {
			c.remove(e)
		}
		c.misses++
		observability.UserCacheMissesTotal.Inc()
		return nil, false
	}

	c.lru.MoveToFront(e.element)
	c.hits++
	observability.UserCacheHitsTotal.Inc()
	return e.user, true
}

// Set stores a user, evicting the least recently used entry when full.
func (c *Cache) Set(user *models.User) {
	if user == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[user.ID]; ok {
		e.user = user
		e.insertedAt = c.now()
		c.lru.MoveToFront(e.element)
		return
	}

	if c.lru.Len() >= c.maxSize {
		if back := c.lru.Back(); back != nil {
			c.remove(back.Value.(*entry))
			observability.UserCacheEvictionsTotal.Inc()
		}
	}

	e := &entry{id: user.ID, user: user, insertedAt: c.now()}
	e.element = c.lru.PushFront(e)
	c.entries[user.ID] = e
}

// Lookup returns the cached user or loads and caches it.
// Loader errors are returned unchanged and nothing is cached.
func (c *Cache) Lookup(ctx context.Context, loader Loader, id uuid.UUID) (*models.User, error) {
	if user, ok := c.Get(id); ok {
		return user, nil
	}

	user, err := loader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Set(user)
	return user, nil
}

// Invalidate drops a user. Called after the user is updated, deleted or signs out.
func (c *Cache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		c.remove(e)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*entry)
	c.lru.Init()
}

// remove must be called with the lock held.
func (c *Cache) remove(e *entry) {
	c.lru.Remove(e.element)
	delete(c.entries, e.id)
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, e := range c.entries {
		if c.expired(e) {
			c.remove(e)
			removed++
		}
	}
	return removed
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (c *Cache) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-ctx.Done():
			return
		}
	}
}

// Stats describes cache occupancy and effectiveness.
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:    c.lru.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
