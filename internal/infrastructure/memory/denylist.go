// Package memory holds single-process fallbacks for the Redis-backed
// denylist and rate limiter, used when REDIS_ADDR is not configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// Denylist keeps revoked token ids in a map until they expire.
type Denylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewDenylist() *Denylist {
	return &Denylist{entries: make(map[string]time.Time), now: time.Now}
}

func (d *Denylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweep(now)
	d.entries[tokenID] = now.Add(ttl)
	return nil
}

func (d *Denylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	until, ok := d.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !d.now().Before(until) {
		delete(d.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// sweep drops expired entries. Callers hold mu.
func (d *Denylist) sweep(now time.Time) {
	for id, until := range d.entries {
		if !now.Before(until) {
			delete(d.entries, id)
		}
	}
}

var _ ports.TokenDenylist = (*Denylist)(nil)
