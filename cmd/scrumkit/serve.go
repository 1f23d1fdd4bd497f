package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/scrumkit/scrumkit/internal/config"
	"github.com/scrumkit/scrumkit/internal/db"
	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/export"
	"github.com/scrumkit/scrumkit/internal/llm"
	"github.com/scrumkit/scrumkit/internal/notify"
	"github.com/scrumkit/scrumkit/internal/retention"
	"github.com/scrumkit/scrumkit/internal/retro"
	"github.com/scrumkit/scrumkit/internal/server"
	"github.com/scrumkit/scrumkit/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the retrospective HTTP server",
		Long:  "Serves the REST API and event streams, and runs the retention sweeper when a schedule is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Scrumkit config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	log := newLogger(cfg.Log, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	st := store.New(gormDB)
	bus := events.NewBus(log.With("component", "events"))

	opts, err := serviceOptions(ctx, cfg, log)
	if err != nil {
		return err
	}
	opts.Store = st
	opts.Bus = bus
	svc := retro.New(opts)

	sweeper, err := retention.New(st, cfg.Retention, log.With("component", "retention"))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, server.StartOpts{
			Service:           svc,
			Bus:               bus,
			Port:              cfg.Server.Port,
			HeartbeatInterval: cfg.Server.HeartbeatInterval,
			StreamBuffer:      cfg.Server.StreamBuffer,
			Logger:            log.With("component", "http"),
			Out:               cmd.OutOrStdout(),
		})
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	return g.Wait()
}

// serviceOptions wires the optional integrations. Each one stays off when
// its configuration is missing.
func serviceOptions(ctx context.Context, cfg *config.Config, log *slog.Logger) (retro.Options, error) {
	opts := retro.Options{
		GenerateTimeout: cfg.LLM.Timeout,
		AppURL:          cfg.Server.AppURL,
		Logger:          log.With("component", "retro"),
	}

	if cfg.LLM.APIKey() != "" {
		opts.Generator = llm.NewOpenAI(cfg.LLM, nil)
		log.Info("report generation enabled", "model", cfg.LLM.Model, "base_url", cfg.LLM.BaseURL)
	} else {
		log.Warn("report generation disabled", "missing_env", cfg.LLM.APIKeyEnv)
	}

	dispatcher, err := notify.FromConfig(cfg.Notify, log.With("component", "notify"))
	if err != nil {
		return opts, fmt.Errorf("notify: %w", err)
	}
	if targets := dispatcher.Targets(); len(targets) > 0 {
		opts.Sharer = dispatcher
		log.Info("report sharing enabled", "targets", targets)
	}

	if cfg.GitHub.Enabled() {
		gh, err := export.NewGitHub(ctx, cfg.GitHub)
		if err != nil {
			return opts, err
		}
		opts.Exporter = gh
		log.Info("action item export enabled", "repo", gh.Repo())
	}
	return opts, nil
}
