package store

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduper is the in-process fallback when Redis is not configured.
// Good enough for a single instance: a retried delivery lands on the same
// process that saw the original.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryDeduper creates an in-memory dedup map.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		ttl:  seenTTL,
		now:  time.Now,
	}
}

// MarkSeen records an event id, reporting whether this is its first
// sighting within the TTL. Expired entries are pruned opportunistically.
func (d *MemoryDeduper) MarkSeen(_ context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, id)
		}
	}

	if at, ok := d.seen[eventID]; ok && now.Sub(at) <= d.ttl {
		return false, nil
	}
	d.seen[eventID] = now
	return true, nil
}

var _ EventDeduper = (*MemoryDeduper)(nil)
