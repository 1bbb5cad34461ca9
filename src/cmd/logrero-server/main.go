// Package main provides the logrero control-plane server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"logrero/src/apperr"
	"logrero/src/broker"
	"logrero/src/config"
	"logrero/src/contracts"
	"logrero/src/controlplane"
	"logrero/src/logger"
	"logrero/src/server"
	"logrero/src/store"
)

const shutdownTimeout = 10 * time.Second

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "logrero-server",
	Short: "Serve device policies and collect forwarded journal records",
	Long: `logrero-server is the reference control plane for logrero agents.

It serves per-device policies, stores forwarded records in memory or Postgres
and optionally consumes records that agents publish to Redpanda.

Environment:
  LOGRERO_TOKEN               bearer token every request must carry (required)
  LOGRERO_LISTEN              listen address (default :8080)
  LOGRERO_DATABASE_URL        Postgres DSN; records stay in memory when unset
  LOGRERO_POLICIES            YAML file seeding device policies
  LOGRERO_DEFAULT_PRIORITIES  comma-separated default priorities (default 4)
  LOGRERO_BROKERS             comma-separated Redpanda brokers to ingest from
  LOGRERO_TOPIC               topic to ingest from (default logrero.logs)`,
	Version:       controlplane.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServerFromEnv()
		if err != nil {
			return &apperr.ConfigurationError{Reason: "server environment", Err: err}
		}

		if logLevel == "" {
			logLevel = os.Getenv(config.EnvLogLevel)
		}
		level := logger.LevelInfo
		if logLevel != "" {
			if level, err = logger.ParseLevel(logLevel); err != nil {
				return &apperr.ConfigurationError{Reason: "log level", Err: err}
			}
		}
		log := logger.NewConsoleLogger(level)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, log)
	},
}

func init() {
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Minimum log level (trace, debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", apperr.Explain(err))
		os.Exit(1)
	}
}

// serve runs the HTTP server and, when brokers are configured, the ingest
// consumer until ctx is done or either of them fails.
func serve(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) error {
	st, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := newServer(ctx, cfg, st, log)
	if err != nil {
		return err
	}

	var brk broker.Broker
	if len(cfg.Brokers) > 0 {
		rp, err := broker.NewRedpandaBroker(cfg.Brokers, log)
		if err != nil {
			return &apperr.ConfigurationError{Reason: "LOGRERO_BROKERS", Err: err}
		}
		defer rp.Close()
		brk = rp
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("[Server] Listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("[Server] Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if brk != nil {
		g.Go(func() error {
			log.Info("[Server] Ingesting topic %s from %v", cfg.Topic, cfg.Brokers)
			if err := srv.Ingest(gctx, brk, cfg.Topic); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("ingest: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("[Server] Stopped")
	return nil
}

// newStore opens Postgres when a database URL is configured and falls back to
// an in-memory store otherwise.
func newStore(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("[Server] %s not set, records are kept in memory only", config.EnvDatabaseURL)
		return store.NewMemoryStore(), nil
	}
	pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// newServer builds the HTTP server and seeds policies from the policies file.
// A default in the file wins over LOGRERO_DEFAULT_PRIORITIES.
func newServer(ctx context.Context, cfg *config.ServerConfig, st store.Store, log logger.Logger) (*server.Server, error) {
	defaults := contracts.Policy{Priorities: cfg.DefaultPriorities}

	if cfg.PoliciesFile != "" {
		pf, err := server.LoadPolicies(cfg.PoliciesFile)
		if err != nil {
			return nil, &apperr.ConfigurationError{Reason: "load policies", Err: err}
		}
		if err := pf.Apply(ctx, st); err != nil {
			return nil, fmt.Errorf("failed to seed policies: %w", err)
		}
		if p, ok := pf.DefaultPolicy(); ok {
			defaults = p
		}
		log.Info("[Server] Seeded %d device policies from %s", len(pf.Devices), cfg.PoliciesFile)
	}

	log.Info("[Server] Default priorities: %v", defaults.Priorities)
	return server.New(st, cfg.Token, log, server.WithDefaultPolicy(defaults)), nil
}
