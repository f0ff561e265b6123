package workers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/joshdurbin/komoot-stats/internal/metrics"
	syncsvc "github.com/joshdurbin/komoot-stats/internal/sync"
)

// State is the refresher's position in its Idle/Refreshing cycle
type State int32

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// SnapshotBuilder produces a fresh snapshot
type SnapshotBuilder interface {
	BuildSnapshot(ctx context.Context, now time.Time, fetchProgress syncsvc.FetchProgressCallback) (*syncsvc.Snapshot, error)
}

// TourRefresher periodically rebuilds the tour snapshot and publishes it
type TourRefresher struct {
	builder  SnapshotBuilder
	store    *syncsvc.Store
	interval time.Duration
	now      func() time.Time
	state    atomic.Int32
}

// NewTourRefresher creates a new tour refresh worker
func NewTourRefresher(builder SnapshotBuilder, store *syncsvc.Store, interval time.Duration) *TourRefresher {
	return &TourRefresher{
		builder:  builder,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// State returns whether a refresh is in flight
func (r *TourRefresher) State() State {
	return State(r.state.Load())
}

// Run starts the tour refresh worker. The first refresh happens immediately.
func (r *TourRefresher) Run(ctx context.Context) {
	log := logging.Logger
	log.Info().Dur("interval", r.interval).Msg("tour refresher started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Do an initial refresh
	r.RefreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("tour refresher stopped")
			return
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce builds and publishes one snapshot. A failure is logged and counted,
// and the previously published snapshot stays in place.
func (r *TourRefresher) RefreshOnce(ctx context.Context) error {
	log := logging.Logger

	r.state.Store(int32(StateRefreshing))
	defer r.state.Store(int32(StateIdle))

	log.Info().Msg("starting tour refresh")
	started := time.Now()

	progressCallback := func(result komoot.FetchResult) {
		log.Debug().
			Int("page", result.Page).
			Int("tours_on_page", len(result.Tours)).
			Int("total_fetched", result.TotalFetched).
			Bool("has_next", result.HasNext).
			Msg("tour refresh progress")
	}

	snap, err := r.builder.BuildSnapshot(ctx, r.now(), progressCallback)
	elapsed := time.Since(started)
	if err != nil {
		metrics.RecordRefresh(elapsed, 0, 0, 0, err)
		log.Error().
			Err(err).
			Str("error_type", metrics.ClassifyRefreshError(err)).
			Dur("elapsed", elapsed).
			Msg("tour refresh failed, keeping previous snapshot")
		return err
	}

	r.store.Publish(snap)
	metrics.RecordRefresh(elapsed, snap.Fetched, len(snap.Tours), len(snap.Weeks), nil)

	log.Info().
		Int("fetched", snap.Fetched).
		Int("kept", len(snap.Tours)).
		Int("weeks", len(snap.Weeks)).
		Int("months", len(snap.Months)).
		Dur("elapsed", elapsed.Round(time.Millisecond)).
		Msg("tour refresh completed")

	LogSnapshotStats(snap)
	return nil
}

// LogSnapshotStats logs summary statistics of a snapshot
func LogSnapshotStats(snap *syncsvc.Snapshot) {
	log := logging.Logger
	st := snap.Stats()

	if st.Tours == 0 {
		log.Info().Int("total_tours", 0).Msg("snapshot statistics")
		return
	}

	log.Info().
		Int("total_tours", st.Tours).
		Int("tours_dropped", st.Dropped).
		Str("newest_tour", formatDate(st.Newest)).
		Str("oldest_tour", formatDate(st.Oldest)).
		Int("weeks", st.Weeks).
		Int("months", st.Months).
		Msg("snapshot statistics")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}
