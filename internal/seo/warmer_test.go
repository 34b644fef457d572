package seo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type countingSEO struct {
	warms int
	err   error
}

func (c *countingSEO) Robots() string { return "" }
func (c *countingSEO) Sitemap(context.Context) ([]byte, error) { return nil, nil }

func (c *countingSEO) Warm(context.Context) error {
	c.warms++
	return c.err
}

func TestWarmerRunCycleHoldsLock(t *testing.T) {
	t.Parallel()

	svc := &countingSEO{}
	lock := &fakeLock{}
	warmer, err := NewWarmer(WarmerParams{Service: svc, Lock: lock, Interval: time.Hour})
	if err != nil {
		t.Fatalf("new warmer: %v", err)
	}

	warmer.runCycle(context.Background())
	if svc.warms != 1 || lock.releases != 1 || lock.held {
		t.Fatalf("expected one warm with the lock released, warms=%d releases=%d", svc.warms, lock.releases)
	}

	lock.held = true
	warmer.runCycle(context.Background())
	if svc.warms != 1 {
		t.Fatalf("warm must be skipped while another instance holds the lock")
	}
}

func TestWarmerRunCycleSurvivesFailure(t *testing.T) {
	t.Parallel()

	svc := &countingSEO{err: errors.New("catalog down")}
	lock := &fakeLock{}
	warmer, err := NewWarmer(WarmerParams{Service: svc, Lock: lock, Interval: time.Hour})
	if err != nil {
		t.Fatalf("new warmer: %v", err)
	}
	warmer.runCycle(context.Background())
	if lock.held {
		t.Fatalf("lock must be released after a failed warm")
	}
}

func TestWarmerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	svc := &countingSEO{}
	warmer, err := NewWarmer(WarmerParams{Service: svc, Interval: time.Hour})
	if err != nil {
		t.Fatalf("new warmer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := warmer.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if svc.warms != 1 {
		t.Fatalf("run should warm once before waiting, got %d", svc.warms)
	}
}

func TestNewWarmerValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewWarmer(WarmerParams{Interval: time.Minute}); err == nil {
		t.Fatalf("expected error without service")
	}
	if _, err := NewWarmer(WarmerParams{Service: &countingSEO{}}); err == nil {
		t.Fatalf("expected error without interval")
	}
}

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestRedisLockOwnership(t *testing.T) {
	t.Parallel()

	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "lock:sitemap", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "lock:sitemap", 0)

	if ok, err := first.Acquire(context.Background()); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(context.Background()); ok {
		t.Fatalf("second instance must not acquire a held lock")
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release without ownership: %v", err)
	}
	if _, ok := store.values["lock:sitemap"]; !ok {
		t.Fatalf("non-owner release must keep the key")
	}
	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if _, ok := store.values["lock:sitemap"]; ok {
		t.Fatalf("owner release should delete the key")
	}
}
