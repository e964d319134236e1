// Package dedup provides a TTL-bounded set of recently seen record ids, used
// to drop at-least-once redeliveries without reprocessing them.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// ShouldProcess reports whether id has not been seen within the TTL and marks
// it seen. An empty id is always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if expiry, ok := d.seen[id]; ok && now.Before(expiry) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evict(now)
	}
	return true
}

// evict drops expired entries first, then the entries closest to expiry until
// the set fits the cap again. Called with the lock held.
func (d *Deduper) evict(now time.Time) {
	for id, expiry := range d.seen {
		if now.After(expiry) {
			delete(d.seen, id)
		}
	}
	for len(d.seen) > d.max {
		var oldest string
		var oldestExpiry time.Time
		for id, expiry := range d.seen {
			if oldest == "" || expiry.Before(oldestExpiry) {
				oldest, oldestExpiry = id, expiry
			}
		}
		delete(d.seen, oldest)
	}
}

// Key hashes a raw record into a stable dedupe id.
func Key(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}
