package scheduler

import "time"

// DefaultLocation is the organisational timezone used when none is configured.
var DefaultLocation = time.FixedZone("JST", 9*60*60)

// IsBusinessDay reports whether the day falls on Monday through Friday.
func IsBusinessDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// BusinessDays returns the local midnight of the first n business days strictly
// after the calendar date of start in loc. Weekend days are skipped without
// being counted.
func BusinessDays(start time.Time, n int, loc *time.Location) []time.Time {
	if n <= 0 {
		return nil
	}
	if loc == nil {
		loc = DefaultLocation
	}
	local := start.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	days := make([]time.Time, 0, n)
	for len(days) < n {
		day = day.AddDate(0, 0, 1)
		if !IsBusinessDay(day) {
			continue
		}
		days = append(days, day)
	}
	return days
}

// SearchWindow returns the span from the start of working hours on the first
// searched business day to the end of working hours on the last one. The
// second return value is false when the configuration searches no days.
func SearchWindow(cfg FinderConfig) (Interval, bool) {
	cfg = cfg.withDefaults()
	days := BusinessDays(cfg.SearchStartDate, cfg.DaysToSearch, cfg.Location)
	if len(days) == 0 || cfg.WorkingHourEnd <= cfg.WorkingHourStart {
		return Interval{}, false
	}
	first := atHour(days[0], cfg.WorkingHourStart)
	last := atHour(days[len(days)-1], cfg.WorkingHourEnd)
	return Interval{Start: first, End: last}, true
}

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
