package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryTRL is an in-memory token revocation list for single-instance
// deployments and tests.
type MemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryTRL constructs an in-memory token revocation list.
func NewMemoryTRL() *MemoryTRL {
	return &MemoryTRL{revoked: make(map[string]time.Time)}
}

// RevokeToken marks a jti as revoked until its expiry.
func (t *MemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = time.Now().Add(ttl)
	return nil
}

// IsRevoked reports whether the jti is on the list and not yet expired.
func (t *MemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	expiry, ok := t.revoked[jti]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		t.mu.Lock()
		delete(t.revoked, jti)
		t.mu.Unlock()
		return false, nil
	}
	return true, nil
}
