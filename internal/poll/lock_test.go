package poll

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/instance"
)

type memoryRedis struct {
	values map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if v, ok := m.values[key]; ok && v == expected {
		delete(m.values, key)
		return true, nil
	}
	return false, nil
}

func TestRedisLockExclusive(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	first, err := NewRedisLock(store, "ff:lock:poll", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, err := NewRedisLock(store, "ff:lock:poll", time.Second)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if owner := store.values["ff:lock:poll"]; !strings.HasPrefix(owner, instance.GetID()+":") {
		t.Fatalf("lock owner should name the instance, got %q", owner)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release without ownership: %v", err)
	}
	if _, held := store.values["ff:lock:poll"]; !held {
		t.Fatal("non-owner release must not delete the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestNewRedisLockValidation(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRedisLock(&memoryRedis{}, "", 0); err == nil {
		t.Fatal("expected error for empty key")
	}
	lock, err := NewRedisLock(&memoryRedis{values: map[string]string{}}, "k", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if lock.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl, got %v", lock.ttl)
	}
}

func TestRedisLockReleaseKeepsForeignOwner(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	lock, err := NewRedisLock(store, "ff:lock:poll", time.Second)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	ctx := context.Background()
	if ok, err := lock.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	// The TTL lapsed and another daemon took the key.
	store.values["ff:lock:poll"] = "other-daemon:1"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["ff:lock:poll"] != "other-daemon:1" {
		t.Fatal("release must not delete a lock owned by another daemon")
	}
}
