package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/scrumkit/scrumkit/internal/config"
	"github.com/scrumkit/scrumkit/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Scrumkit database",
		Long:  "Creates the database if needed and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Scrumkit config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	if cfg.Database.Driver == "mysql" {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready on %s:%d\n", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := migrate(cmd, gormDB); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nScrumkit database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Scrumkit database",
		Long: `Drops every Scrumkit table (or the whole MySQL database) and migrates
again. All sessions, items, votes, action items and reports are lost.

Without --yes the command asks for confirmation, and refuses to run when
stdin is not a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Scrumkit config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	if !skipConfirm {
		if !stdinIsTerminal(cmd) {
			return fmt.Errorf("refusing to reset %s without a terminal; pass --yes", describeDB(cfg.Database))
		}
		if !confirmReset(cmd, describeDB(cfg.Database)) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var gormDB *gorm.DB
	switch cfg.Database.Driver {
	case "mysql":
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropped database %s\n", cfg.Database.Name)
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		if gormDB, err = db.Open(cfg.Database); err != nil {
			return err
		}
	default:
		if gormDB, err = db.Open(cfg.Database); err != nil {
			return err
		}
		if err := db.DropTables(gormDB); err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropped %d tables from %s\n", len(db.AllModels()), cfg.Database.Path)
	}

	if err := migrate(cmd, gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nScrumkit database reset and re-initialized successfully.")
	return nil
}

func migrate(cmd *cobra.Command, gormDB *gorm.DB) error {
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(db.AllModels()))
	return nil
}

func describeDB(cfg config.DatabaseConfig) string {
	if cfg.Driver == "mysql" {
		return fmt.Sprintf("database %q", cfg.Name)
	}
	return fmt.Sprintf("sqlite file %q", cfg.Path)
}

// stdinIsTerminal reports whether the command reads from an interactive
// terminal. Input replaced with SetIn (tests, pipes) is never a terminal.
func stdinIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %s.\n", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
