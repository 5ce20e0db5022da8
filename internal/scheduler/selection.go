package scheduler

import "time"

// DefaultPerDayCap limits how many slots SelectSlots takes from one date.
const DefaultPerDayCap = 2

// SelectSlots picks at most maxSlots candidates in input order, accepting no
// more than perDayCap from any calendar date in loc. A non-positive perDayCap
// falls back to DefaultPerDayCap.
func SelectSlots(candidates []Slot, maxSlots, perDayCap int, loc *time.Location) []Slot {
	if maxSlots <= 0 || len(candidates) == 0 {
		return nil
	}
	if perDayCap <= 0 {
		perDayCap = DefaultPerDayCap
	}
	if loc == nil {
		loc = DefaultLocation
	}

	perDay := make(map[string]int)
	selected := make([]Slot, 0, min(maxSlots, len(candidates)))
	for _, slot := range candidates {
		key := dateKey(slot.Start.In(loc))
		if perDay[key] >= perDayCap {
			continue
		}
		perDay[key]++
		selected = append(selected, slot)
		if len(selected) == maxSlots {
			break
		}
	}
	return selected
}
