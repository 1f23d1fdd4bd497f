package main

import (
	"fmt"
	"time"

	"github.com/scrumkit/scrumkit/internal/db"
	"github.com/scrumkit/scrumkit/internal/retention"
	"github.com/scrumkit/scrumkit/internal/store"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		maxAge     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete completed sessions past the retention age",
		Long:  "Runs one retention sweep immediately, independent of retention.schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, configPath, maxAge)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Scrumkit config file")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "override retention.max_age (e.g. 720h)")
	return cmd
}

func runSweep(cmd *cobra.Command, configPath string, maxAge time.Duration) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	if maxAge > 0 {
		cfg.Retention.MaxAge = maxAge
	}
	log := newLogger(cfg.Log, cmd.ErrOrStderr())

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	// The schedule is irrelevant for a one-shot sweep.
	rc := cfg.Retention
	rc.Schedule = ""
	sweeper, err := retention.New(store.New(gormDB), rc, log)
	if err != nil {
		return err
	}

	n, err := sweeper.Sweep(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d session(s) completed more than %s ago\n", n, cfg.Retention.MaxAge)
	return nil
}
