package tours

import (
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
)

// MonthYearPair identifies a calendar month
type MonthYearPair struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
}

// MonthBucket holds the tours of one calendar month and the distance per sport
type MonthBucket struct {
	MonthYearPair       MonthYearPair         `json:"monthYearPair"`
	Tours               []PublicTour          `json:"tours"`
	DistanceBySportType map[SportType]float64 `json:"distanceBySportType"`
}

// MonthlyGroups groups tours by the month and year of their local start date.
// Groups appear in the order their first tour appears in the input, so a
// most-recent-first input yields most-recent-first months. Months without
// tours are not generated.
func MonthlyGroups(in []komoot.Tour, loc *time.Location) []MonthBucket {
	months := make([]MonthBucket, 0)
	index := make(map[MonthYearPair]int)

	for _, t := range in {
		public, err := ToPublic(t, loc)
		if err != nil {
			continue
		}

		key := MonthYearPair{
			Month: time.Month(public.Date.Month.Number).String(),
			Year:  public.Date.Year,
		}

		i, ok := index[key]
		if !ok {
			i = len(months)
			index[key] = i
			months = append(months, MonthBucket{
				MonthYearPair:       key,
				Tours:               make([]PublicTour, 0),
				DistanceBySportType: make(map[SportType]float64),
			})
		}

		months[i].Tours = append(months[i].Tours, public)
		months[i].DistanceBySportType[public.SportType] += t.Distance
	}

	return months
}
