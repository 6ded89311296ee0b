// Package cli implements the worktracker command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/worktracker/worktracker/internal/daemon"
	"github.com/worktracker/worktracker/internal/domain"
)

// env is the state shared by every command of one invocation.
type env struct {
	home       string
	configPath string
	jsonOut    bool

	cfg daemon.Config
	log *slog.Logger
	now func() time.Time
	loc *time.Location
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&env{now: time.Now, loc: time.Local})
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "worktracker",
		Short: "Track work hours and shared finances for two",
		Long: `worktracker records work sessions, finances and debts for two people.
A share of every session's earnings flows into a shared budget; any surplus
pays down open debts automatically, and rent is charged on the rent day.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&e.home, "home", "", "Data directory (default $WORKTRACKER_HOME or ~/.worktracker)")
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "Config file (default <home>/config.toml)")
	root.PersistentFlags().BoolVar(&e.jsonOut, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		newInitCmd(e),
		newResetCmd(e),
		newServeCmd(e),
		newBudgetCmd(e),
		newSessionCmd(e),
		newTimerCmd(e),
		newFinanceCmd(e),
		newDebtCmd(e),
		newRentCmd(e),
		newRatesCmd(e),
		newCategoryCmd(e),
		newReportCmd(e),
		newExportCmd(e),
		newImportCmd(e),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "error: %v\n", err)
		return 1
	}
	return 0
}

// setup resolves the home directory and loads configuration. The store is
// opened lazily by the commands that need it.
func (e *env) setup(cmd *cobra.Command) error {
	if e.home == "" {
		h, err := daemon.Home()
		if err != nil {
			return err
		}
		e.home = h
	}
	if e.configPath == "" {
		e.configPath = filepath.Join(e.home, daemon.ConfigFileName)
	}
	cfg, err := daemon.LoadConfig(e.configPath)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.log = daemon.NewLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(e.log)
	return nil
}

// appRunE is a command body that needs the open store.
type appRunE func(cmd *cobra.Command, args []string, app *daemon.App) error

// withApp opens the store, running first-time setup and the rent check,
// and closes it when fn returns.
func (e *env) withApp(fn appRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := daemon.Open(cmd.Context(), e.cfg, e.home, e.log)
		if err != nil {
			return err
		}
		defer app.Close()
		app.Ledger.SetClock(e.now)
		app.Timer.SetClock(e.now)
		app.Exports.SetClock(e.now)
		return fn(cmd, args, app)
	}
}

// ─── Output ─────────────────────────────────────────────────────────────────

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints v as JSON when --json is set, otherwise calls table.
func (e *env) emit(cmd *cobra.Command, v any, table func(w io.Writer)) error {
	if e.jsonOut {
		return printJSON(cmd.OutOrStdout(), v)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func czk(d decimal.Decimal) string {
	return d.StringFixed(0) + " CZK"
}

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}

// ─── Flag Parsing ───────────────────────────────────────────────────────────

const (
	dateLayout  = "2006-01-02"
	clockLayout = "2006-01-02 15:04"
)

func parseDecimal(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.Invalid("--%s: %q is not a number", name, s)
	}
	return d, nil
}

// parseDate reads YYYY-MM-DD in loc. Empty means today.
func (e *env) parseDate(name, s string) (time.Time, error) {
	if s == "" {
		y, m, d := e.now().In(e.loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, e.loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, e.loc)
	if err != nil {
		return time.Time{}, domain.Invalid("--%s: %q is not a YYYY-MM-DD date", name, s)
	}
	return t, nil
}

// dateOnly renders a stored calendar date.
func dateOnly(t time.Time) string {
	return t.Format(dateLayout)
}

func readFileOrStdin(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// createOutput opens path for writing; empty or "-" is stdout.
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
