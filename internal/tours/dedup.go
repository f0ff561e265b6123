package tours

import (
	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/joshdurbin/komoot-stats/internal/logging"
)

// Deduplicate drops every tour whose activity period overlaps a tour accepted
// before it. Input order decides: the first member of an overlapping cluster wins.
// The accepted set is scanned linearly for every candidate, which is fine for the
// few hundred tours an account holds.
func Deduplicate(in []komoot.Tour) []komoot.Tour {
	accepted := make([]komoot.Tour, 0, len(in))
	periods := make([]ActivityPeriod, 0, len(in))

	for _, tour := range in {
		period, err := PeriodOf(tour)
		if err != nil {
			logging.Warn("dropping tour with unparseable date", "tour_id", tour.ID, "date", tour.Date, "error", err)
			continue
		}

		if overlapsAny(period, periods) {
			logging.Debug("dropping overlapping tour", "tour_id", tour.ID, "name", tour.Name)
			continue
		}

		accepted = append(accepted, tour)
		periods = append(periods, period)
	}

	return accepted
}

func overlapsAny(p ActivityPeriod, others []ActivityPeriod) bool {
	for _, o := range others {
		if p.Overlaps(o) {
			return true
		}
	}
	return false
}
