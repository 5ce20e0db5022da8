package scheduler

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval has a positive length.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether other lies entirely within the receiver.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Slot is a candidate meeting time produced by FindFreeSlots.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Interval converts the slot to a plain interval.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// In returns the slot with both bounds expressed in loc.
func (s Slot) In(loc *time.Location) Slot {
	if loc == nil {
		return s
	}
	return Slot{Start: s.Start.In(loc), End: s.End.In(loc)}
}

// MergeIntervals returns the union of the given intervals as a sorted list of
// disjoint intervals. Empty or inverted intervals are dropped and touching
// intervals are coalesced.
func MergeIntervals(intervals []Interval) []Interval {
	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Valid() {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sortIntervals(valid)

	merged := []Interval{valid[0]}
	for _, iv := range valid[1:] {
		last := &merged[len(merged)-1]
		if iv.Start.After(last.End) {
			merged = append(merged, iv)
			continue
		}
		if iv.End.After(last.End) {
			last.End = iv.End
		}
	}
	return merged
}

// sortIntervals orders intervals by start, then end, keeping input order for ties.
func sortIntervals(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		if !intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].Start.Before(intervals[j].Start)
		}
		return intervals[i].End.Before(intervals[j].End)
	})
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
