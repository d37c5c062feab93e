package cache

import (
	"sync"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c := New(5*time.Second, 100)

	c.Set("nfts:list", []string{"a", "b"})

	got, ok := c.Get("nfts:list")
	if !ok {
		t.Fatal("expected cache hit")
	}
	values := got.([]string)
	if len(values) != 2 || values[0] != "a" {
		t.Errorf("unexpected cached value: %v", values)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(5*time.Second, 100)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Error("expected cache miss for nonexistent key")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := New(50*time.Millisecond, 100)

	c.Set("nfts:1", "data")

	// Should be found immediately
	if _, ok := c.Get("nfts:1"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	// Wait for expiry
	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("nfts:1"); ok {
		t.Error("expected cache miss after TTL expiration")
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New(5*time.Second, 100)

	c.Set("nfts:list", "data")
	c.Set("nfts:42", "data")
	c.Set("sales:list", "data")

	c.InvalidatePrefix("nfts:")

	if _, ok := c.Get("nfts:list"); ok {
		t.Error("expected nfts:list to be invalidated")
	}
	if _, ok := c.Get("nfts:42"); ok {
		t.Error("expected nfts:42 to be invalidated")
	}

	// Sales entry should remain
	if _, ok := c.Get("sales:list"); !ok {
		t.Error("expected sales:list to remain in cache")
	}
}

func TestCache_MaxEntries(t *testing.T) {
	c := New(5*time.Second, 3)

	c.Set("key1", "data")
	c.Set("key2", "data")
	c.Set("key3", "data")

	for _, k := range []string{"key1", "key2", "key3"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to be in cache", k)
		}
	}

	// Adding a 4th should evict the oldest (key1)
	c.Set("key4", "data")

	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to be evicted (oldest entry)")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to be in cache", k)
		}
	}
}

func TestCache_UpdateInPlace(t *testing.T) {
	c := New(5*time.Second, 2)

	c.Set("key1", "v1")
	c.Set("key2", "v1")

	// Re-setting an existing key must not evict anything
	c.Set("key1", "v2")

	got, ok := c.Get("key1")
	if !ok || got.(string) != "v2" {
		t.Errorf("expected updated value v2, got %v (hit=%v)", got, ok)
	}
	if _, ok := c.Get("key2"); !ok {
		t.Error("expected key2 to remain in cache")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(5*time.Second, 100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Set("shared", "data")
		}()
		go func() {
			defer wg.Done()
			c.Get("shared")
		}()
	}
	wg.Wait()
}
