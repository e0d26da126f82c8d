package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing key should be a clean miss, got ok=%v err=%v", ok, err)
	}
	if err := m.Set(ctx, "k", "v", 0); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := m.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("unexpected value %q ok=%v", v, ok)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "k", "v", time.Minute)
	now = now.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("entry should still be live")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("entry should have expired")
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read, len=%d", m.Len())
	}
}

func TestRedisUnreachableReturnsError(t *testing.T) {
	r := NewRedis("127.0.0.1:1", "", 0, "test:")
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, _, err := r.Get(ctx, "k"); err == nil {
		t.Fatal("expected connection error")
	}
}
