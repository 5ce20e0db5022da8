package application

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/meeting-finder/internal/scheduler"
)

// busyCache keeps recent free/busy answers so repeated slot searches for the
// same calendars do not hit the provider while no case mutation has happened.
type busyCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]busyCacheEntry
}

type busyCacheEntry struct {
	intervals []scheduler.Interval
	expiresAt time.Time
}

func newBusyCache(ttl time.Duration, maxEntries int, now func() time.Time) *busyCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &busyCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]busyCacheEntry),
	}
}

func (c *busyCache) Get(key string) ([]scheduler.Interval, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneIntervals(entry.intervals), true
}

func (c *busyCache) Store(key string, intervals []scheduler.Interval) {
	if c == nil {
		return
	}
	cloned := cloneIntervals(intervals)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = busyCacheEntry{intervals: cloned, expiresAt: expiry}
}

// InvalidateOwner drops every entry cached for the owner.
func (c *busyCache) InvalidateOwner(ownerID string) {
	if c == nil {
		return
	}
	prefix := ownerID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *busyCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *busyCache) evictOneLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func cloneIntervals(intervals []scheduler.Interval) []scheduler.Interval {
	if len(intervals) == 0 {
		return nil
	}
	out := make([]scheduler.Interval, len(intervals))
	copy(out, intervals)
	return out
}

func buildBusyCacheKey(ownerID string, calendarIDs []string, from, to time.Time) string {
	calendars := sortStrings(calendarIDs)

	builder := strings.Builder{}
	builder.WriteString(ownerID)
	builder.WriteString("|")
	builder.WriteString(strings.Join(calendars, ","))
	builder.WriteString("|")
	builder.WriteString(from.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(to.UTC().Format(time.RFC3339Nano))
	return builder.String()
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
