package application

import (
	"testing"
	"time"

	"github.com/example/meeting-finder/internal/scheduler"
)

func TestBusyCacheStoresAndReturnsCopies(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := newBusyCache(time.Minute, 4, func() time.Time { return current })

	original := []scheduler.Interval{{Start: fixed, End: fixed.Add(time.Hour)}}
	cache.Store("key", original)

	// Mutating the original slice should not affect the cached copy.
	original[0].End = fixed.Add(5 * time.Hour)

	cached, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if !cached[0].End.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("expected cached interval to remain unchanged, got %v", cached[0])
	}

	cached[0].End = fixed
	cachedAgain, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit on second read")
	}
	if !cachedAgain[0].End.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("expected cache to return independent copy, got %v", cachedAgain[0])
	}
}

func TestBusyCacheExpiresEntries(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newBusyCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", []scheduler.Interval{{Start: current, End: current.Add(time.Hour)}})
	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestBusyCacheInvalidateOwner(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	cache := newBusyCache(time.Minute, 4, time.Now)

	aliceKey := buildBusyCacheKey("alice@example.com", []string{"primary", "bob@example.com"}, from, to)
	carolKey := buildBusyCacheKey("carol@example.com", []string{"primary"}, from, to)
	cache.Store(aliceKey, nil)
	cache.Store(carolKey, nil)

	cache.InvalidateOwner("alice@example.com")
	if _, ok := cache.Get(aliceKey); ok {
		t.Fatalf("expected owner entries to be removed")
	}
	if _, ok := cache.Get(carolKey); !ok {
		t.Fatalf("expected other owners to be kept")
	}
}

func TestBusyCacheKeyIgnoresCalendarOrder(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := buildBusyCacheKey("owner", []string{"b", "a"}, from, from.Add(time.Hour))
	b := buildBusyCacheKey("owner", []string{"a", "b"}, from, from.Add(time.Hour))
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
}

func TestBusyCacheDisabledWithoutTTL(t *testing.T) {
	cache := newBusyCache(0, 4, time.Now)
	cache.Store("key", nil)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected disabled cache to miss")
	}
}
