package tours

import (
	"sort"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
)

const week = 7 * 24 * time.Hour

// WeekMonthYearPair identifies a weekly bucket by its start and end calendar days
type WeekMonthYearPair struct {
	WeekStartDay      int   `json:"weekStartDay"`
	WeekStartMonth    int   `json:"weekStartMonth"`
	WeekEndDay        int   `json:"weekEndDay"`
	WeekEndMonth      int   `json:"weekEndMonth"`
	Year              int   `json:"year"`
	StartEpochSeconds int64 `json:"startEpochSeconds"`
}

// WeekStats is one weekly bucket with the distance covered per sport.
// It serializes as a {first, second} pair.
type WeekStats struct {
	Week      WeekMonthYearPair     `json:"first"`
	Distances map[SportType]float64 `json:"second"`
}

// StartOfWeek returns Monday 00:00 in loc of the week containing now
func StartOfWeek(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	offset := isoWeekday(local.Weekday()) - 1
	y, m, d := local.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// dayKey is the calendar-day index used to place tours into weeks.
// It treats every year as 365 days long, so the weeks around a year change
// (and the last day of leap years) do not line up with real calendar arithmetic.
func dayKey(t time.Time) int {
	return t.Year()*365 + t.YearDay()
}

// WeeklyDistances buckets tours into weeks, from the week containing now back to
// the week containing the oldest tour, inclusive. Weeks are stepped by a fixed 7*24h; a tour
// belongs to a week when its local day key is in [key(weekStart), key(weekStart)+7).
// Empty weeks are kept with an empty map. The result is ordered most recent first.
func WeeklyDistances(in []komoot.Tour, now time.Time, loc *time.Location) []WeekStats {
	type dated struct {
		key   int
		sport SportType
		dist  float64
	}

	tours := make([]dated, 0, len(in))
	var oldest time.Time
	haveOldest := false
	for _, t := range in {
		start, err := t.StartTime()
		if err != nil {
			continue
		}
		if !haveOldest || start.Before(oldest) {
			oldest = start
			haveOldest = true
		}
		tours = append(tours, dated{
			key:   dayKey(start.In(loc)),
			sport: ClassifySport(t.Sport, t.Name),
			dist:  t.Distance,
		})
	}

	weeks := make([]WeekStats, 0)
	if len(tours) == 0 {
		return weeks
	}

	oldestEpoch := oldest.Unix()
	for current := StartOfWeek(now, loc); ; current = current.Add(-week) {
		startLocal := current.In(loc)
		endLocal := current.Add(6 * 24 * time.Hour).In(loc)

		from := dayKey(startLocal)
		to := from + 7

		distances := make(map[SportType]float64)
		for _, t := range tours {
			if t.key >= from && t.key < to {
				distances[t.sport] += t.dist
			}
		}

		weeks = append(weeks, WeekStats{
			Week: WeekMonthYearPair{
				WeekStartDay:      startLocal.Day(),
				WeekStartMonth:    int(startLocal.Month()),
				WeekEndDay:        endLocal.Day(),
				WeekEndMonth:      int(endLocal.Month()),
				Year:              startLocal.Year(),
				StartEpochSeconds: current.Unix(),
			},
			Distances: distances,
		})

		// This step starts at or before the oldest tour, so it is the oldest tour's week
		if current.Unix() <= oldestEpoch {
			break
		}
	}

	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].Week.StartEpochSeconds > weeks[j].Week.StartEpochSeconds
	})
	return weeks
}
