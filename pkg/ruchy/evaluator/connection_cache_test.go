package evaluator

import (
	"errors"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache[T any](maxSize int, ttl time.Duration, health func(T) error, closed *[]T) (*connectionCache[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := newConnectionCache[T](maxSize, ttl, health, func(v T) error {
		if closed != nil {
			*closed = append(*closed, v)
		}
		return nil
	})
	cache.now = clock.now
	return cache, clock
}

func TestConnectionCacheBasic(t *testing.T) {
	cache, _ := newTestCache[string](10, time.Minute, nil, nil)
	defer cache.closeAll()

	cache.put("key1", "value1")
	val, found := cache.get("key1")
	if !found {
		t.Fatal("expected to find key1 in cache")
	}
	if val != "value1" {
		t.Fatalf("expected value1, got %s", val)
	}

	if _, found = cache.get("key2"); found {
		t.Fatal("expected not to find key2 in cache")
	}
}

func TestConnectionCacheTTL(t *testing.T) {
	var closed []string
	cache, clock := newTestCache(10, 100*time.Millisecond, nil, &closed)
	defer cache.closeAll()

	cache.put("key1", "value1")
	if _, found := cache.get("key1"); !found {
		t.Fatal("expected to find key1 immediately")
	}

	clock.advance(150 * time.Millisecond)
	if _, found := cache.get("key1"); found {
		t.Fatal("expected key1 to be expired")
	}
	if len(closed) != 1 || closed[0] != "value1" {
		t.Fatalf("expected expired entry to be closed, got %v", closed)
	}
}

func TestConnectionCacheHealthCheck(t *testing.T) {
	healthCheckFails := false
	cache, _ := newTestCache(10, time.Minute, func(s string) error {
		if healthCheckFails {
			return errors.New("health check failed")
		}
		return nil
	}, nil)
	defer cache.closeAll()

	cache.put("key1", "value1")
	if _, found := cache.get("key1"); !found {
		t.Fatal("expected to find key1 when health check passes")
	}

	healthCheckFails = true
	if _, found := cache.get("key1"); found {
		t.Fatal("expected key1 to be removed after health check failure")
	}
	if cache.size() != 0 {
		t.Fatalf("expected empty cache, got size %d", cache.size())
	}
}

func TestConnectionCacheMaxSize(t *testing.T) {
	var closed []int
	cache, clock := newTestCache(3, time.Minute, nil, &closed)
	defer cache.closeAll()

	cache.put("key1", 1)
	clock.advance(time.Second)
	cache.put("key2", 2)
	clock.advance(time.Second)
	cache.put("key3", 3)
	clock.advance(time.Second)

	// key1 becomes the most recently used
	if _, found := cache.get("key1"); !found {
		t.Fatal("expected key1")
	}
	clock.advance(time.Second)

	cache.put("key4", 4)
	if cache.size() != 3 {
		t.Fatalf("expected cache size 3, got %d", cache.size())
	}
	if _, found := cache.get("key2"); found {
		t.Fatal("expected key2 to be evicted as least recently used")
	}
	for _, key := range []string{"key1", "key3", "key4"} {
		if _, found := cache.get(key); !found {
			t.Errorf("expected %s to survive eviction", key)
		}
	}
	if len(closed) != 1 || closed[0] != 2 {
		t.Fatalf("expected only the evicted entry to be closed, got %v", closed)
	}
}

func TestConnectionCacheReplace(t *testing.T) {
	var closed []string
	cache, _ := newTestCache(3, time.Minute, nil, &closed)

	cache.put("key", "old")
	cache.put("key", "new")
	if val, _ := cache.get("key"); val != "new" {
		t.Fatalf("expected replaced value, got %s", val)
	}
	if len(closed) != 1 || closed[0] != "old" {
		t.Fatalf("expected the replaced entry to be closed, got %v", closed)
	}

	if err := cache.closeAll(); err != nil {
		t.Fatalf("closeAll: %v", err)
	}
	if cache.size() != 0 {
		t.Fatalf("expected empty cache after closeAll, got %d", cache.size())
	}
}
