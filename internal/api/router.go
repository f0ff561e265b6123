// Package api serves the tour snapshot over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	syncsvc "github.com/joshdurbin/komoot-stats/internal/sync"
	"github.com/joshdurbin/komoot-stats/internal/workers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRateLimit = 120

// SnapshotReader gives access to the latest published tour snapshot
type SnapshotReader interface {
	Load() *syncsvc.Snapshot
}

// RefreshState reports what the background refresher is doing
type RefreshState interface {
	State() workers.State
}

// Config holds the HTTP layer settings
type Config struct {
	// RateLimit is the number of requests per minute allowed from one IP. Zero disables the limit.
	RateLimit      int
	AllowedOrigins []string
}

// DefaultConfig returns the settings used when none are given
func DefaultConfig() Config {
	return Config{
		RateLimit:      defaultRateLimit,
		AllowedOrigins: []string{"*"},
	}
}

// Router wires the HTTP endpoints to the snapshot store
type Router struct {
	snapshots SnapshotReader
	refresher RefreshState
	mcpServer *mcp.Server
	config    Config
}

// NewRouter creates a router. refresher and mcpServer may be nil; without an
// MCP server the /mcp endpoint is not mounted.
func NewRouter(snapshots SnapshotReader, refresher RefreshState, mcpServer *mcp.Server, config Config) *Router {
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	return &Router{
		snapshots: snapshots,
		refresher: refresher,
		mcpServer: mcpServer,
		config:    config,
	}
}

// Handler builds the chi handler with the global middleware stack
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Group(func(r chi.Router) {
		if rt.config.RateLimit > 0 {
			r.Use(httprate.LimitByIP(rt.config.RateLimit, time.Minute))
		}
		r.Use(PrometheusMetrics)

		r.Get("/", rt.Root)
		r.Get("/latest-komoot-tours-by-month", rt.ToursByMonth)
		r.Get("/activity-stats-by-week", rt.StatsByWeek)
		r.Get("/health", rt.Health)
	})

	r.Handle("/metrics", promhttp.Handler())

	if rt.mcpServer != nil {
		mcpServer := rt.mcpServer
		r.Handle("/mcp", mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
			return mcpServer
		}, nil))
	}

	logging.Debug("HTTP routes registered", "rate_limit", rt.config.RateLimit, "mcp", rt.mcpServer != nil)
	return r
}
