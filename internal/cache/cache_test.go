package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New[string, int](time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)

	v, ok := c.Get(ctx, "a")
	if !ok {
		t.Fatal("expected hit")
	}
	if v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
}

func TestCache_GetMissingKey(t *testing.T) {
	c := New[string, int](time.Hour)
	defer c.Close()

	_, ok := c.Get(context.Background(), "missing")
	if ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestCache_EntryExpiresAfterTTL(t *testing.T) {
	c := New[string, int](time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(ctx, "a")
	if ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := New[string, int](time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, 0)
	time.Sleep(20 * time.Millisecond)

	v, ok := c.Get(ctx, "a")
	if !ok {
		t.Fatal("expected zero-ttl entry to survive")
	}
	if v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	c.Delete("a")

	_, ok := c.Get(ctx, "a")
	if ok {
		t.Fatal("expected entry to be gone after Delete")
	}
}

func TestCache_SweepRemovesExpiredEntries(t *testing.T) {
	c := New[string, int](10 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	c.mu.Lock()
	_, stillPresent := c.items["a"]
	c.mu.Unlock()

	if stillPresent {
		t.Fatal("expected background sweep to have removed the expired entry")
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[string, int](time.Hour)
	c.Close()
	c.Close()
}

func TestCache_OverwriteReplacesValueAndTTL(t *testing.T) {
	c := New[string, int](time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "a", 2, time.Minute)

	v, ok := c.Get(ctx, "a")
	if !ok || v != 2 {
		t.Fatalf("expected overwritten value 2, got %d ok=%v", v, ok)
	}
}
