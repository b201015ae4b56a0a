package contact

import (
	"sync"
	"time"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// Cache remembers resolved contacts per building address so repeated
// batch runs do not redo search and oracle calls.
type Cache interface {
	Get(key string) (*model.ResolvedContact, bool)
	Set(key string, c *model.ResolvedContact)
}

// MemoryCache is a TTL-bounded in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	contact model.ResolvedContact
	expires time.Time
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(key string) (*model.ResolvedContact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	contact := e.contact
	return &contact, true
}

func (c *MemoryCache) Set(key string, contact *model.ResolvedContact) {
	if contact == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		contact: *contact,
		expires: c.now().Add(c.ttl),
	}
}
