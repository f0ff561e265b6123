package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/joshdurbin/komoot-stats/internal/pagination"
	"github.com/joshdurbin/komoot-stats/internal/workers"
)

// Error codes returned in API error bodies
const (
	codeInvalidPagination = "INVALID_PAGINATION"
	codeInternal          = "INTERNAL_ERROR"
)

// APIError is the body of every non-2xx response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse reports refresher state and the size of the published snapshot
type HealthResponse struct {
	Status      string `json:"status"`
	State       string `json:"state"`
	Tours       int    `json:"tours"`
	Weeks       int    `json:"weeks"`
	Months      int    `json:"months"`
	RefreshedAt string `json:"refreshedAt,omitempty"`
}

// Root answers liveness probes
func (rt *Router) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("hi :)"))
}

// ToursByMonth serves one page of monthly tour groups
func (rt *Router) ToursByMonth(w http.ResponseWriter, r *http.Request) {
	months := rt.snapshots.Load().Months
	window, err := pagination.FromQuery(r.URL.Query(), len(months))
	if err != nil {
		respondPaginationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pagination.Paginate(months, window))
}

// StatsByWeek serves one page of weekly distance buckets
func (rt *Router) StatsByWeek(w http.ResponseWriter, r *http.Request) {
	weeks := rt.snapshots.Load().Weeks
	window, err := pagination.FromQuery(r.URL.Query(), len(weeks))
	if err != nil {
		respondPaginationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pagination.Paginate(weeks, window))
}

// Health reports whether a snapshot has been published and what the refresher is doing
func (rt *Router) Health(w http.ResponseWriter, r *http.Request) {
	snap := rt.snapshots.Load()

	state := workers.StateIdle
	if rt.refresher != nil {
		state = rt.refresher.State()
	}

	resp := HealthResponse{
		Status: "starting",
		State:  state.String(),
		Tours:  len(snap.Tours),
		Weeks:  len(snap.Weeks),
		Months: len(snap.Months),
	}
	if !snap.Empty() {
		resp.Status = "ok"
		resp.RefreshedAt = snap.RefreshedAt.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondPaginationError(w http.ResponseWriter, err error) {
	var vErr *pagination.ValidationError
	if errors.As(err, &vErr) {
		respondError(w, http.StatusBadRequest, codeInvalidPagination, vErr.Error())
		return
	}
	logging.Error("unexpected pagination failure", "error", err)
	respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error("failed to write JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	logging.Debug("API error", "code", code, "status", status, "message", message)
	respondJSON(w, status, APIError{Code: code, Message: message})
}
