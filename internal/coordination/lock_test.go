package coordination

import (
	"context"
	"testing"
	"time"
)

func TestLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	lock := NewLock(NewMemoryStore())

	if !lock.Acquire(ctx, "query:abc", 15*time.Second) {
		t.Fatal("first acquire should succeed")
	}
	if lock.Acquire(ctx, "query:abc", 15*time.Second) {
		t.Error("second acquire on a held lock should fail")
	}
	if !lock.Acquire(ctx, "query:other", 15*time.Second) {
		t.Error("different key should be independently lockable")
	}
}

func TestLockReleaseAllowsReacquire(t *testing.T) {
	ctx := context.Background()
	lock := NewLock(NewMemoryStore())

	lock.Acquire(ctx, "query:abc", 15*time.Second)
	lock.Release(ctx, "query:abc")

	if !lock.Acquire(ctx, "query:abc", 15*time.Second) {
		t.Error("acquire after release should succeed")
	}
}

func TestLockExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	lock := NewLock(store)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }

	lock.Acquire(ctx, "query:abc", 10*time.Second)

	store.now = func() time.Time { return start.Add(11 * time.Second) }
	if !lock.Acquire(ctx, "query:abc", 10*time.Second) {
		t.Error("lock should be reclaimable after its TTL elapses")
	}
}

func TestLockFailsOpenWhenStoreUnavailable(t *testing.T) {
	lock := NewLock(failingStore{})

	if !lock.Acquire(context.Background(), "query:abc", 10*time.Second) {
		t.Error("unavailable store should fail open on acquire")
	}
}
