package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/joshdurbin/komoot-stats/internal/tours"
)

// FetchProgressCallback is called after each page is fetched
type FetchProgressCallback func(result komoot.FetchResult)

// TourFetcher is the upstream side of a refresh
type TourFetcher interface {
	FetchAllTours(ctx context.Context, progress komoot.ProgressCallback) ([]komoot.Tour, error)
}

// Service turns the upstream tour listing into a Snapshot
type Service struct {
	client TourFetcher
	loc    *time.Location
}

// NewService creates a new sync service. Calendar aggregation happens in loc.
func NewService(client TourFetcher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		client: client,
		loc:    loc,
	}
}

// Location returns the time zone used for calendar aggregation
func (s *Service) Location() *time.Location {
	return s.loc
}

// BuildSnapshot fetches every tour, drops overlapping duplicates and computes the
// weekly and monthly aggregates relative to now. Nothing is returned on error, so a
// failed refresh can never replace a good snapshot with a partial one.
func (s *Service) BuildSnapshot(ctx context.Context, now time.Time, fetchProgress FetchProgressCallback) (*Snapshot, error) {
	var progressCb komoot.ProgressCallback
	if fetchProgress != nil {
		progressCb = func(result komoot.FetchResult) {
			fetchProgress(result)
		}
	}

	fetched, err := s.client.FetchAllTours(ctx, progressCb)
	if err != nil {
		return nil, fmt.Errorf("fetching tours: %w", err)
	}

	kept := tours.SortByStartDesc(tours.Deduplicate(fetched))

	logging.Debug("aggregating tours",
		"fetched", len(fetched),
		"kept", len(kept),
		"location", s.loc.String())

	return &Snapshot{
		Tours:       kept,
		Weeks:       tours.WeeklyDistances(kept, now, s.loc),
		Months:      tours.MonthlyGroups(kept, s.loc),
		Fetched:     len(fetched),
		RefreshedAt: now,
	}, nil
}
