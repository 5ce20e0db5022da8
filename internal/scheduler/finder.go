package scheduler

import "time"

// BufferPolicy selects how the buffer minutes separate a slot from preceding
// busy time.
type BufferPolicy int

const (
	// BufferAtBlockStart offsets the first slot of every free block by the
	// buffer. Slots inside a block are contiguous.
	BufferAtBlockStart BufferPolicy = iota
	// BufferAroundBusy widens each busy interval by the buffer on both sides
	// before the sweep. Lunch is not widened.
	BufferAroundBusy
)

// Default working hours in the organisational timezone.
const (
	DefaultWorkingHourStart = 10
	DefaultWorkingHourEnd   = 19
	DefaultLunchStart       = 12
	DefaultLunchEnd         = 13
)

// FinderConfig parameterises a free slot search.
type FinderConfig struct {
	DurationMinutes  int
	BufferMinutes    int
	WorkingHourStart int
	WorkingHourEnd   int
	LunchStart       int
	LunchEnd         int
	SearchStartDate  time.Time
	DaysToSearch     int
	Location         *time.Location
	BufferPolicy     BufferPolicy
}

// withDefaults fills the location and, when all hour fields are zero, the
// default working and lunch hours.
func (c FinderConfig) withDefaults() FinderConfig {
	if c.Location == nil {
		c.Location = DefaultLocation
	}
	if c.WorkingHourStart == 0 && c.WorkingHourEnd == 0 && c.LunchStart == 0 && c.LunchEnd == 0 {
		c.WorkingHourStart = DefaultWorkingHourStart
		c.WorkingHourEnd = DefaultWorkingHourEnd
		c.LunchStart = DefaultLunchStart
		c.LunchEnd = DefaultLunchEnd
	}
	return c
}

// FindFreeSlots computes every slot of the configured duration that fits within
// working hours on the searched business days without touching lunch or any
// busy interval. The result is chronological and uncapped.
func FindFreeSlots(busy []Interval, cfg FinderConfig) []Slot {
	cfg = cfg.withDefaults()
	if cfg.DurationMinutes <= 0 || cfg.DaysToSearch <= 0 || cfg.WorkingHourEnd <= cfg.WorkingHourStart {
		return nil
	}
	duration := time.Duration(cfg.DurationMinutes) * time.Minute
	buffer := time.Duration(max(cfg.BufferMinutes, 0)) * time.Minute

	var slots []Slot
	for _, day := range BusinessDays(cfg.SearchStartDate, cfg.DaysToSearch, cfg.Location) {
		window := Interval{Start: atHour(day, cfg.WorkingHourStart), End: atHour(day, cfg.WorkingHourEnd)}
		exclusions := dayExclusions(busy, window, day, cfg, buffer)

		blockStartBuffer := buffer
		if cfg.BufferPolicy == BufferAroundBusy {
			blockStartBuffer = 0
		}
		for _, block := range freeBlocks(window, exclusions) {
			slots = appendSlots(slots, block, duration, blockStartBuffer)
		}
	}
	return slots
}

func dayExclusions(busy []Interval, window Interval, day time.Time, cfg FinderConfig, buffer time.Duration) []Interval {
	exclusions := make([]Interval, 0, len(busy)+1)
	if cfg.LunchEnd > cfg.LunchStart {
		lunch := Interval{Start: atHour(day, cfg.LunchStart), End: atHour(day, cfg.LunchEnd)}
		if lunch.Overlaps(window) {
			exclusions = append(exclusions, lunch)
		}
	}
	for _, b := range busy {
		if !b.Valid() {
			continue
		}
		if cfg.BufferPolicy == BufferAroundBusy {
			b = Interval{Start: b.Start.Add(-buffer), End: b.End.Add(buffer)}
		}
		if b.Overlaps(window) {
			exclusions = append(exclusions, b)
		}
	}
	sortIntervals(exclusions)
	return exclusions
}

// freeBlocks sweeps the sorted exclusions across the window and returns the
// maximal gaps between them.
func freeBlocks(window Interval, exclusions []Interval) []Interval {
	var blocks []Interval
	cursor := window.Start
	for _, ex := range exclusions {
		if ex.Start.After(cursor) {
			end := minTime(ex.Start, window.End)
			if end.After(cursor) {
				blocks = append(blocks, Interval{Start: cursor, End: end})
			}
		}
		if ex.End.After(cursor) {
			cursor = ex.End
		}
	}
	if window.End.After(cursor) {
		blocks = append(blocks, Interval{Start: cursor, End: window.End})
	}
	return blocks
}

func appendSlots(slots []Slot, block Interval, duration, buffer time.Duration) []Slot {
	start := block.Start.Add(buffer)
	for {
		end := start.Add(duration)
		if end.After(block.End) {
			return slots
		}
		slots = append(slots, Slot{Start: start, End: end})
		start = end
	}
}
