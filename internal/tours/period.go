// Package tours holds the pure tour logic: overlap-based deduplication, sport
// classification, public projections and the weekly and monthly aggregations.
// Nothing in here performs I/O; every function is a function of its inputs.
package tours

import (
	"sort"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
)

// ActivityPeriod is the closed interval a tour occupies
type ActivityPeriod struct {
	Start time.Time
	End   time.Time
}

// PeriodOf returns the activity period of a tour: [start, start+duration]
func PeriodOf(t komoot.Tour) (ActivityPeriod, error) {
	start, err := t.StartTime()
	if err != nil {
		return ActivityPeriod{}, err
	}
	return ActivityPeriod{
		Start: start,
		End:   start.Add(time.Duration(t.Duration) * time.Second),
	}, nil
}

// Overlaps reports whether two periods share at least one instant. Touching
// boundaries count as overlap.
func (p ActivityPeriod) Overlaps(other ActivityPeriod) bool {
	return !p.Start.After(other.End) && !other.Start.After(p.End)
}

// SortByStartDesc returns a copy of tours ordered most recent first.
// Tours without a parseable start sort last, keeping their relative order.
func SortByStartDesc(in []komoot.Tour) []komoot.Tour {
	type keyed struct {
		tour  komoot.Tour
		start time.Time
		ok    bool
	}

	items := make([]keyed, len(in))
	for i, t := range in {
		start, err := t.StartTime()
		items[i] = keyed{tour: t, start: start, ok: err == nil}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		return items[i].start.After(items[j].start)
	})

	out := make([]komoot.Tour, len(items))
	for i, it := range items {
		out[i] = it.tour
	}
	return out
}
