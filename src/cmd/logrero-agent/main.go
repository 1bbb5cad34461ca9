// Package main provides the logrero journal forwarding agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"logrero/src/agent"
	"logrero/src/apperr"
	"logrero/src/broker"
	"logrero/src/config"
	"logrero/src/controlplane"
	"logrero/src/journal"
	"logrero/src/logger"
	"logrero/src/reconcile"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "logrero-agent",
	Short: "Forward systemd journal records to the logrero control plane",
	Long: `logrero-agent tails the local systemd journal and forwards every record
whose priority is allowed by the device policy. The policy is fetched from the
control plane at startup and refreshed periodically.

Configuration is read from a TOML file (--config, LOGRERO_CONFIG or ./config.toml).
LOGRERO_TOKEN, LOGRERO_AGENT_ID and LOGRERO_LOG_LEVEL override the file.`,
	Version:       controlplane.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return &apperr.ConfigurationError{Reason: "log.level", Err: err}
		}
		log := logger.NewConsoleLogger(level)

		log.Info("Starting logrero agent %s (device %s, control plane %s)", controlplane.Version, cfg.Agent.ID, cfg.Endpoint())

		source, err := journal.Open(log, journal.WithPollTimeout(cfg.Agent.PollTimeout.Duration))
		if err != nil {
			return err
		}
		defer source.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case <-sigChan:
				log.Info("Shutdown signal received, stopping agent...")
				cancel()
			case <-ctx.Done():
			}
		}()

		return run(ctx, cfg, source, log)
	},
}

func init() {
	addFlags(rootCmd.Flags())
}

func addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&configPath, "config", "c", "", "Path to the agent configuration file")
	fs.StringVar(&logLevel, "log-level", "", "Minimum log level (trace, debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", apperr.Explain(err))
		os.Exit(1)
	}
}

// run wires the agent and blocks until ctx is cancelled or the agent fails.
// Cancellation is a clean stop and returns nil.
func run(ctx context.Context, cfg *config.Config, source agent.Source, log logger.Logger) error {
	client := controlplane.NewClient(cfg.Identity(),
		controlplane.WithTimeout(cfg.Agent.HTTPTimeout.Duration),
		controlplane.WithCompression(cfg.Agent.Compress),
	)

	sink, closeSink, err := newSink(cfg, client, log)
	if err != nil {
		return err
	}
	defer closeSink()

	mode, err := reconcile.ParseMode(cfg.Agent.FilterMode)
	if err != nil {
		return &apperr.ConfigurationError{Reason: "agent.filter_mode", Err: err}
	}

	opts := []agent.Option{
		agent.WithRefreshInterval(cfg.Agent.RefreshInterval.Duration),
		agent.WithFilterMode(mode),
	}
	if cfg.Agent.Heartbeat {
		opts = append(opts, agent.WithHeartbeat(client))
	}
	a := agent.NewAgent(source, client, sink, log, opts...)

	if err := a.Init(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Agent stopped")
	return nil
}

// newSink returns the configured record sink and a function releasing it.
func newSink(cfg *config.Config, client *controlplane.Client, log logger.Logger) (agent.LogSink, func() error, error) {
	switch cfg.Sink.Kind {
	case config.SinkRedpanda:
		brk, err := broker.NewRedpandaBroker(cfg.Sink.Brokers, log)
		if err != nil {
			return nil, nil, &apperr.ConfigurationError{Reason: "sink.brokers", Err: err}
		}
		log.Info("Forwarding records to topic %s on %v", cfg.Sink.Topic, cfg.Sink.Brokers)
		sink := broker.NewSink(brk, cfg.Sink.Topic, cfg.Agent.ID)
		return sink, sink.Close, nil
	default:
		return client, func() error { return nil }, nil
	}
}
