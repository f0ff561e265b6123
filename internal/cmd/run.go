package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/api"
	"github.com/joshdurbin/komoot-stats/internal/auth"
	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/joshdurbin/komoot-stats/internal/server"
	syncsvc "github.com/joshdurbin/komoot-stats/internal/sync"
	"github.com/joshdurbin/komoot-stats/internal/workers"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// RuntimeConfig holds all runtime configuration from CLI flags
type RuntimeConfig struct {
	Port            int
	RefreshInterval time.Duration
	Timezone        string
	RateLimit       int
}

// Run is the main entry point of the server
func Run(cfg *RuntimeConfig) error {
	log := logging.Logger

	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", cfg.RefreshInterval)
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	komootCfg, err := auth.LoadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Int("port", cfg.Port).
		Dur("refresh_interval", cfg.RefreshInterval).
		Str("timezone", loc.String()).
		Int("rate_limit", cfg.RateLimit).
		Str("api_base", komootCfg.APIBase).
		Msg("starting komoot-stats")

	// Cancelled on SIGINT/SIGTERM, or when the stdio session ends
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := komoot.NewClient(komootCfg)
	store := syncsvc.NewStore()
	refresher := workers.NewTourRefresher(syncsvc.NewService(client, loc), store, cfg.RefreshInterval)
	srv := server.New(store, client, loc)

	g, gCtx := errgroup.WithContext(ctx)

	log.Info().Msg("starting background workers")
	g.Go(func() error {
		refresher.Run(gCtx)
		return nil
	})

	if cfg.Port > 0 {
		router := api.NewRouter(store, refresher, srv.MCPServer(), api.Config{
			RateLimit:      cfg.RateLimit,
			AllowedOrigins: []string{"*"},
		})
		g.Go(func() error {
			return runHTTPServer(gCtx, router.Handler(), cfg.Port)
		})
	} else {
		log.Info().Msg("MCP server running via stdio")
		g.Go(func() error {
			defer cancel()
			return srv.Run(gCtx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("shut down with error")
		return err
	}
	log.Info().Msg("all workers shut down gracefully")
	return nil
}

// runHTTPServer serves the API, metrics and the MCP SSE endpoint until ctx is done
func runHTTPServer(ctx context.Context, handler http.Handler, port int) error {
	log := logging.Logger

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Long-lived SSE streams end with ctx instead of holding up Shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", addr).
			Str("endpoint", fmt.Sprintf("http://localhost%s", addr)).
			Msg("HTTP server running")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown timed out, closing connections")
			return httpServer.Close()
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("HTTP server on %s: %w", addr, err)
	}
}

// newKomootClient loads credentials from the environment for one-shot commands
func newKomootClient() (*komoot.Client, error) {
	komootCfg, err := auth.LoadConfig()
	if err != nil {
		return nil, err
	}
	return komoot.NewClient(komootCfg), nil
}

// commandContext is cancelled on SIGINT/SIGTERM
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
