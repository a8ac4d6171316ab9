package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client, err := NewRedisClient(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_ExclusiveAndRelease(t *testing.T) {
	mr, client := newMiniRedis(t)
	l := &RedisLocker{Client: client}
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "publish:sp1", time.Minute)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if !mr.Exists("lock:publish:sp1") {
		t.Fatalf("lock key not written")
	}
	if ttl := mr.TTL("lock:publish:sp1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	if _, err := l.Lock(ctx, "publish:sp1", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second Lock: expected ErrLockHeld, got %v", err)
	}
	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if mr.Exists("lock:publish:sp1") {
		t.Fatalf("lock key not deleted on unlock")
	}
	if _, err := l.Lock(ctx, "publish:sp1", time.Minute); err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
}

func TestRedisLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	mr, client := newMiniRedis(t)
	l := &RedisLocker{Client: client, Prefix: "test:"}
	ctx := context.Background()

	staleUnlock, err := l.Lock(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := l.Lock(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Lock after expiry: %v", err)
	}
	if err := staleUnlock(ctx); err != nil {
		t.Fatalf("stale unlock: %v", err)
	}
	if !mr.Exists("test:k") {
		t.Fatalf("stale holder must not release the new lock")
	}
}

func TestNewRedisClient_Errors(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "redis://%zz"); err == nil {
		t.Fatalf("expected URL parse error")
	}
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisClient(context.Background(), "redis://"+addr+"/0"); err == nil {
		t.Fatalf("expected ping error for closed server")
	}
}

func TestLocalLocker(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.Now = func() time.Time { return now }
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "a", time.Minute)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := l.Lock(ctx, "a", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if _, err := l.Lock(ctx, "b", time.Minute); err != nil {
		t.Fatalf("independent key: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := l.Lock(ctx, "a", time.Minute); err != nil {
		t.Fatalf("expired lock must be re-acquirable: %v", err)
	}
	_ = unlock(ctx) // stale token, must not release the new holder
	if _, err := l.Lock(ctx, "a", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("stale unlock released the new holder")
	}

	var zero LocalLocker
	if _, err := zero.Lock(ctx, "z", time.Second); err != nil {
		t.Fatalf("zero-value LocalLocker: %v", err)
	}
}
