// Package main provides the agenthubd binary entry point. Agenthubd runs the
// job-dispatch pipeline as a daemon: it loads agent and cron definitions from
// a YAML file, connects the configured message platforms and serves
// Prometheus metrics.
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

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agenthub"
	"github.com/hupe1980/agenthub/config"
	"github.com/hupe1980/agenthub/directory"
	"github.com/hupe1980/agenthub/ingest"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/model"
	anthropicmodel "github.com/hupe1980/agenthub/model/anthropic"
	openaimodel "github.com/hupe1980/agenthub/model/openai"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "agenthubd"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Multi-agent job dispatch daemon",
		Long: `Agenthubd dispatches jobs from a shared queue to per-agent sessions with
bounded concurrency. Jobs arrive from message platforms (NATS, websocket),
cron schedules and recursive agent delegation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(&logging.Config{
		Level:     logging.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		Component: appName,
	})

	if cfg.Definitions == "" {
		return errors.New("no definitions file configured (set definitions: in the config or AGENTHUB_DEFINITIONS)")
	}
	defs, err := directory.NewFile(cfg.Definitions, func(o *directory.FileOptions) {
		o.Watch = cfg.WatchDefinitions
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	defer defs.Close()

	chatModel, err := buildModel(cfg.Model)
	if err != nil {
		return err
	}

	platforms, err := buildPlatforms(cfg, logger)
	if err != nil {
		return err
	}

	hub := agenthub.New(chatModel, func(o *agenthub.Options) {
		o.Directory = defs
		o.CronStore = defs
		o.Platforms = platforms
		o.DefaultAgentID = cfg.DefaultAgent
		o.MaxRetries = cfg.Dispatch.MaxRetries
		o.CleanupThreshold = cfg.Dispatch.CleanupThreshold
		o.PollInterval = cfg.Dispatch.PollInterval
		o.SuperviseInterval = cfg.Dispatch.SuperviseInterval
		o.BackgroundHistoryDepth = cfg.Dispatch.BackgroundHistoryDepth
		o.Logger = logger
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		startMetricsServer(ctx, cfg.Metrics.Addr, logger)
	}

	logger.Info("agenthubd starting",
		"version", Version,
		"definitions", cfg.Definitions,
		"provider", cfg.Model.Provider,
		"platforms", len(platforms),
	)

	if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("agenthubd stopped")
	return nil
}

// buildModel selects the chat model backend. Credentials come from the
// provider SDK's own environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY).
func buildModel(cfg config.ModelConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// buildPlatforms constructs every configured message-bus connection.
func buildPlatforms(cfg *config.Config, logger logging.Logger) ([]ingest.PlatformConnection, error) {
	var platforms []ingest.PlatformConnection

	if cfg.NATS.URL != "" {
		conn, err := ingest.NewNATSConnection(func(o *ingest.NATSOptions) {
			o.URL = cfg.NATS.URL
			o.InboxSubject = cfg.NATS.InboxSubject
			o.OutboxPrefix = cfg.NATS.OutboxPrefix
			o.AllowedSenders = cfg.NATS.AllowedSenders
			o.Logger = logger
		})
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		platforms = append(platforms, conn)
	}

	if cfg.WS.URL != "" {
		platforms = append(platforms, ingest.NewWSConnection(func(o *ingest.WSOptions) {
			o.URL = cfg.WS.URL
			o.AllowedSenders = cfg.WS.AllowedSenders
			o.Logger = logger
		}))
	}

	return platforms, nil
}

// startMetricsServer exposes /metrics until ctx is cancelled.
func startMetricsServer(ctx context.Context, addr string, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
