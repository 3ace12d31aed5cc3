package stats

import "time"

// PeriodKind names how a Period was selected.
type PeriodKind string

const (
	KindDay   PeriodKind = "day"
	KindWeek  PeriodKind = "week"
	KindMonth PeriodKind = "month"
	KindRange PeriodKind = "range"
)

// Period is a closed time interval [Start, End].
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Day is the calendar day containing t.
func Day(t time.Time) Period {
	return Period{Kind: KindDay, Start: startOfDay(t), End: endOfDay(t)}
}

// Week is the Sunday-to-Saturday week containing t.
func Week(t time.Time) Period {
	start := startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
	return Period{Kind: KindWeek, Start: start, End: endOfDay(start.AddDate(0, 0, 6))}
}

// Month is the calendar month containing t.
func Month(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{Kind: KindMonth, Start: start, End: endOfDay(start.AddDate(0, 1, -1))}
}

// Range is an arbitrary closed interval. Bounds are used as given.
func Range(start, end time.Time) Period {
	return Period{Kind: KindRange, Start: start, End: end}
}

// Contains reports whether t lies within the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}
