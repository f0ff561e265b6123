package sync

import (
	"sync/atomic"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/joshdurbin/komoot-stats/internal/tours"
)

// Snapshot is one refresh worth of derived data. It is never modified after
// it has been published.
type Snapshot struct {
	Tours       []komoot.Tour
	Weeks       []tours.WeekStats
	Months      []tours.MonthBucket
	Fetched     int
	RefreshedAt time.Time
}

// Empty reports whether the snapshot has never been filled by a refresh
func (s *Snapshot) Empty() bool {
	return s.RefreshedAt.IsZero()
}

// Stats summarizes a snapshot for logs and health output
type Stats struct {
	Fetched     int       `json:"fetched"`
	Tours       int       `json:"tours"`
	Dropped     int       `json:"dropped"` // overlapping recordings and tours with unparseable dates
	Weeks       int       `json:"weeks"`
	Months      int       `json:"months"`
	Newest      time.Time `json:"newest,omitempty"`
	Oldest      time.Time `json:"oldest,omitempty"`
	RefreshedAt time.Time `json:"refreshedAt,omitempty"`
}

// Stats returns summary counts for the snapshot
func (s *Snapshot) Stats() Stats {
	st := Stats{
		Fetched:     s.Fetched,
		Tours:       len(s.Tours),
		Dropped:     s.Fetched - len(s.Tours),
		Weeks:       len(s.Weeks),
		Months:      len(s.Months),
		RefreshedAt: s.RefreshedAt,
	}
	// Tours are sorted most recent first
	if len(s.Tours) > 0 {
		st.Newest, _ = s.Tours[0].StartTime()
		st.Oldest, _ = s.Tours[len(s.Tours)-1].StartTime()
	}
	return st
}

var emptySnapshot = &Snapshot{
	Tours:  []komoot.Tour{},
	Weeks:  []tours.WeekStats{},
	Months: []tours.MonthBucket{},
}

// Store holds the latest published snapshot. Readers never block on a refresh.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding the empty snapshot
func NewStore() *Store {
	return &Store{}
}

// Load returns the latest snapshot, or an empty one before the first publish
func (s *Store) Load() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// Publish replaces the served snapshot
func (s *Store) Publish(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
}
