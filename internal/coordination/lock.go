package coordination

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Lock is a short-TTL mutual-exclusion primitive preventing duplicate
// concurrent processing of one unit of work. The TTL bounds how long a
// crashed holder can block others; there is no renewal.
type Lock struct {
	store Store
}

// NewLock creates a lock backed by the shared store
func NewLock(store Store) *Lock {
	return &Lock{store: store}
}

// Acquire attempts to take the lock. When the backing store is
// unavailable it reports success, assuming single-instance operation.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := l.store.SetNX(ctx, "lock:"+key, "1", ttl)
	if err != nil {
		logrus.Warnf("Lock acquire for %s failed, failing open: %v", key, err)
		return true
	}
	return ok
}

// Release frees the lock. Errors are ignored: the TTL reclaims the key.
func (l *Lock) Release(ctx context.Context, key string) {
	_ = l.store.Del(ctx, "lock:"+key)
}
