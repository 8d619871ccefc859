package restcall

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	resp := &Response{StatusCode: 200, Body: []byte("ok")}

	if _, ok := c.Get(ctx, "orders:1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Set(ctx, "orders:1", resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := c.Get(ctx, "orders:1")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if got != resp {
		t.Error("expected the stored response back")
	}

	if err := c.Delete(ctx, "orders:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Get(ctx, "orders:1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestMemoryCache_DeleteMissingKey(t *testing.T) {
	c := NewMemoryCache(0)
	if err := c.Delete(context.Background(), "never-set"); err != nil {
		t.Fatalf("deleting a missing key must not fail: %v", err)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(20 * time.Millisecond)

	if err := c.Set(ctx, "k", &Response{StatusCode: 200}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss after expiry")
	}
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	if err := c.Set(ctx, "k", &Response{StatusCode: 200}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("expected entry to survive without a TTL")
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, key, &Response{StatusCode: 200})
				c.Get(ctx, key)
				_ = c.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
