package cache

import (
	"testing"
	"time"

	"khata/internal/log"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

// TestLRUCacheEviction tests size-based eviction
func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Set("key4", "value4") // evicts key1

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
}

func TestLRUCacheRecentUseSurvives(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, found := c.Get("b"); found {
		t.Error("b was least recently used and should be gone")
	}
	if v, found := c.Get("a"); !found || v != 1 {
		t.Error("a should survive after being read")
	}
}

// TestLRUCacheTTLExpiration tests time-based expiration
func TestLRUCacheTTLExpiration(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](100, time.Minute).WithClock(clock.now)

	c.Set("key1", "value1")
	if _, found := c.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clock.t = clock.t.Add(61 * time.Second)
	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if c.Size() != 0 {
		t.Errorf("expired read should remove the entry, size=%d", c.Size())
	}
}

func TestLRUCacheCleanExpiredAndPurge(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)
	c.Set("old1", 1)
	c.Set("old2", 2)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("fresh", 3)
	clock.t = clock.t.Add(45 * time.Second)

	m := NewManager(log.Discard())
	m.Register(c)
	if removed := m.CleanAll(); removed != 2 {
		t.Fatalf("expected 2 expired entries, got %d", removed)
	}
	if c.Size() != 1 {
		t.Fatalf("expected one entry left, got %d", c.Size())
	}

	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge must empty the cache")
	}
	c.Set("again", 4)
	if v, ok := c.Get("again"); !ok || v != 4 {
		t.Fatalf("cache must be usable after purge")
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager(log.Discard())
	m.Stop() // never started
	m.Stop()

	m = NewManager(log.Discard())
	m.StartCleanup(time.Millisecond)
	m.Stop()
}

func TestKey(t *testing.T) {
	if Key("acc", "month", "2024-01") != "acc|month|2024-01" {
		t.Fatal("unexpected key")
	}
	if Key("a", "") == Key("a") {
		t.Fatal("empty parts must keep keys distinct")
	}
}
