package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/worktracker/worktracker/internal/api"
	"github.com/worktracker/worktracker/internal/daemon"
	"github.com/worktracker/worktracker/internal/domain"
)

// ─── init ───────────────────────────────────────────────────────────────────

func newInitCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory, config file and database",
		Long: `Create the data directory with a default config.toml and seed the database
with the default categories, rates, rent settings and an empty budget.
Running it again leaves existing data untouched.`,
		Args: cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			written, err := writeDefaultConfig(e.configPath, e.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Home:     %s\n", e.home)
			fmt.Fprintf(out, "Database: %s\n", app.DB.Path())
			if written {
				fmt.Fprintf(out, "Config:   %s (created)\n", e.configPath)
			} else {
				fmt.Fprintf(out, "Config:   %s\n", e.configPath)
			}
			return nil
		}),
	}
}

// ─── reset ──────────────────────────────────────────────────────────────────

func newResetCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and start over with the defaults",
		Long: `Delete every session, finance record, debt, payment, category and setting,
zero the budget and seed the defaults as "init" does on a fresh store.
The config file is left alone. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return domain.Invalid("reset deletes all data; rerun with --yes")
			}
			if err := app.Ledger.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All data deleted; defaults restored.")
			return nil
		}),
	}
	cmd.Flags().Bool("yes", false, "Confirm deleting all data")
	return cmd
}

// writeDefaultConfig writes cfg to path unless a file already exists there.
func writeDefaultConfig(path string, cfg daemon.Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return false, fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

// ─── serve ──────────────────────────────────────────────────────────────────

func newServeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		Long: `Serve the JSON API, the /api/events change feed and /metrics until
interrupted. The rent check runs once at startup.`,
		Args: cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			if host, _ := cmd.Flags().GetString("host"); host != "" {
				app.Config.API.Host = host
			}
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				app.Config.API.Port = port
			}
			if err := app.Config.Validate(); err != nil {
				return err
			}

			srv := api.NewServer(app.Ledger, app.Timer, app.Reports, app.Exports, app.Log)
			defer srv.Close()
			srv.AllowOrigins(app.Config.API.AllowedOrigins...)
			if app.Config.Metrics.Enabled {
				srv.EnableMetrics()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.ListenAndServe(ctx, srv.Handler())
		}),
	}
	cmd.Flags().String("host", "", "Listen host (overrides [api].host)")
	cmd.Flags().Int("port", 0, "Listen port (overrides [api].port)")
	return cmd
}
