package metrics

import (
	"sort"
	"strings"
	"time"
)

// KeyFunc returns the groups a session belongs to. A session may belong
// to several groups or none.
type KeyFunc func(SessionMetrics) []string

// ByProject groups by project short name.
func ByProject(m SessionMetrics) []string {
	return []string{m.Project}
}

// BySession puts every session in its own group.
func BySession(m SessionMetrics) []string {
	return []string{m.SessionID}
}

// GroupBy aggregates sessions per key.
func GroupBy(ms []SessionMetrics, key KeyFunc) map[string]Aggregate {
	groups := make(map[string]Aggregate)
	for _, m := range ms {
		for _, k := range key(m) {
			groups[k] = groups[k].Merge(FromSession(m))
		}
	}
	return groups
}

// Keys returns group keys ordered by duration descending, then name.
func Keys(groups map[string]Aggregate) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := groups[keys[i]].Duration, groups[keys[j]].Duration
		if di != dj {
			return di > dj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Period selects a trailing time window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod accepts day, week, month or all; anything else means all.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(s)) {
	case PeriodDay:
		return PeriodDay
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	}
	return PeriodAll
}

// Window is the trailing length of the period, or 0 for all.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// FilterByPeriod keeps sessions that ended within the period before now.
// Sessions without an end time only survive PeriodAll.
func FilterByPeriod(ms []SessionMetrics, p Period, now time.Time) []SessionMetrics {
	window := p.Window()
	if window == 0 {
		return ms
	}
	var out []SessionMetrics
	for _, m := range ms {
		if p.Contains(m.EndTime, now) {
			out = append(out, m)
		}
	}
	return out
}

// Contains reports whether a session ending at end falls in the period
// before now. A nil end only matches PeriodAll.
func (p Period) Contains(end *time.Time, now time.Time) bool {
	window := p.Window()
	if window == 0 {
		return true
	}
	return end != nil && !end.Before(now.Add(-window))
}
