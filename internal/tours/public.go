package tours

import (
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
)

// PublicTour is the display view of a tour served to clients
type PublicTour struct {
	Name        string          `json:"name"`
	Duration    int             `json:"duration"`
	Distance    float64         `json:"distance"`
	SportType   SportType       `json:"sportType"`
	BicycleInfo *BikeInfo       `json:"bicycleInfo"`
	Date        LocalDate       `json:"date"`
	MapImage    komoot.MapImage `json:"mapImage"`
	Elevation   Elevation       `json:"elevation"`
}

// Elevation is the total climb and descent of a tour, in meters
type Elevation struct {
	Up   float64 `json:"up"`
	Down float64 `json:"down"`
}

// LocalDate is a start instant broken down in the server's time zone
type LocalDate struct {
	DateMillis int64     `json:"dateMillis"`
	Minute     int       `json:"minute"`
	HourOfDay  int       `json:"hourOfDay"`
	DayOfWeek  NamedUnit `json:"dayOfWeek"`
	DayOfMonth int       `json:"dayOfMonth"`
	Month      NamedUnit `json:"month"`
	Year       int       `json:"year"`
}

// NamedUnit pairs a calendar number with its English name
type NamedUnit struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// isoWeekday numbers Monday as 1 and Sunday as 7
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// NewLocalDate breaks t down in loc
func NewLocalDate(t time.Time, loc *time.Location) LocalDate {
	local := t.In(loc)
	return LocalDate{
		DateMillis: t.UnixMilli(),
		Minute:     local.Minute(),
		HourOfDay:  local.Hour(),
		DayOfWeek:  NamedUnit{Number: isoWeekday(local.Weekday()), Name: local.Weekday().String()},
		DayOfMonth: local.Day(),
		Month:      NamedUnit{Number: int(local.Month()), Name: local.Month().String()},
		Year:       local.Year(),
	}
}

// ToPublic builds the display view of a tour. Bike tours lose their bike suffix
// from the name and gain bicycle info.
func ToPublic(t komoot.Tour, loc *time.Location) (PublicTour, error) {
	start, err := t.StartTime()
	if err != nil {
		return PublicTour{}, err
	}

	sport := ClassifySport(t.Sport, t.Name)
	name := t.Name
	var bike *BikeInfo
	if sport.IsBike() {
		var bikeType BikeType
		name, bikeType = BikeVariant(t.Name)
		info := bikeType.Info()
		bike = &info
	}

	return PublicTour{
		Name:        name,
		Duration:    t.Duration,
		Distance:    t.Distance,
		SportType:   sport,
		BicycleInfo: bike,
		Date:        NewLocalDate(start, loc),
		MapImage:    t.MapImage,
		Elevation:   Elevation{Up: t.ElevationUp, Down: t.ElevationDown},
	}, nil
}
