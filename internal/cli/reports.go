package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/worktracker/worktracker/internal/app/export"
	"github.com/worktracker/worktracker/internal/daemon"
)

// ─── report ─────────────────────────────────────────────────────────────────

func newReportCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Summaries of work, finances and debts",
	}

	deductions := &cobra.Command{
		Use:   "deductions",
		Short: "Per-person deductions for each finished month",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			rows, err := app.Reports.Deductions(cmd.Context(), e.now().In(e.loc))
			if err != nil {
				return err
			}
			return e.emit(cmd, rows, func(w io.Writer) {
				fmt.Fprintln(w, "MONTH\tPERSON\tHOURS\tEARNINGS\tRATE\tDEDUCTION")
				for _, m := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\t%s\n",
						m.Month, m.Person, m.Hours().StringFixed(2), czk(m.Earnings),
						m.DeductionRate.Shift(2).StringFixed(2), czk(m.Deduction))
				}
			})
		}),
	}

	finance := &cobra.Command{
		Use:   "finance",
		Short: "Income and expense totals",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			sum, err := app.Reports.Finance(cmd.Context())
			if err != nil {
				return err
			}
			return e.emit(cmd, sum, func(w io.Writer) {
				fmt.Fprintln(w, "CURRENCY\tINCOME\tEXPENSE\tNET")
				for _, cur := range slices.Sorted(maps.Keys(sum.ByCurrency)) {
					t := sum.ByCurrency[cur]
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						cur, t.Income.StringFixed(2), t.Expense.StringFixed(2), t.Net.StringFixed(2))
				}
				if len(sum.ExpenseByCategory) > 0 {
					fmt.Fprintln(w, "\nCATEGORY\tCZK")
					for _, c := range slices.Sorted(maps.Keys(sum.ExpenseByCategory)) {
						fmt.Fprintf(w, "%s\t%s\n", c, sum.ExpenseByCategory[c].StringFixed(2))
					}
				}
			})
		}),
	}

	debts := &cobra.Command{
		Use:   "debts",
		Short: "Debt totals in CZK",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			sum, err := app.Reports.Debts(cmd.Context())
			if err != nil {
				return err
			}
			return e.emit(cmd, sum, func(w io.Writer) {
				fmt.Fprintf(w, "Total:\t%s\n", czk(sum.Total))
				fmt.Fprintf(w, "Paid:\t%s\n", czk(sum.Paid))
				fmt.Fprintf(w, "Remaining:\t%s\n", czk(sum.Remaining))
				fmt.Fprintf(w, "Active:\t%d\n", sum.Active)
				fmt.Fprintf(w, "Settled:\t%d\n", sum.Settled)
			})
		}),
	}

	today := &cobra.Command{
		Use:   "today",
		Short: "Today's sessions and earnings",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			sum, err := app.Reports.Today(cmd.Context(), e.now().In(e.loc))
			if err != nil {
				return err
			}
			return e.emit(cmd, sum, func(w io.Writer) {
				worked := time.Duration(sum.DurationMs) * time.Millisecond
				fmt.Fprintf(w, "Date:\t%s\n", sum.Date)
				fmt.Fprintf(w, "Sessions:\t%d\n", sum.Sessions)
				fmt.Fprintf(w, "Worked:\t%s\n", worked.Truncate(time.Minute))
				fmt.Fprintf(w, "Earnings:\t%s\n", czk(sum.Earnings))
				fmt.Fprintf(w, "Deductions:\t%s\n", czk(sum.Deductions))
				fmt.Fprintf(w, "Net:\t%s\n", czk(sum.Net))
			})
		}),
	}

	cmd.AddCommand(deductions, finance, debts, today)
	return cmd
}

// ─── export ─────────────────────────────────────────────────────────────────

func newExportCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export data as CSV, XLSX or a JSON backup",
	}

	csvCmd := &cobra.Command{
		Use:       "csv sessions|finance|debts|deductions",
		Short:     "Export one table as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"sessions", "finance", "debts", "deductions"},
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			kind, err := export.ParseKind(args[0])
			if err != nil {
				return err
			}
			filter, err := e.sessionFilter(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := app.Exports.CSV(cmd.Context(), w, kind, filter); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		}),
	}
	csvCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	filterFlags(csvCmd)

	xlsxCmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Export every table into one workbook",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			out, _ := cmd.Flags().GetString("out")
			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := app.Exports.Workbook(cmd.Context(), w); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		}),
	}
	xlsxCmd.Flags().StringP("out", "o", "worktracker.xlsx", "Output file")

	jsonCmd := &cobra.Command{
		Use:   "json",
		Short: "Write a full JSON backup",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			snap, err := app.Ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := export.EncodeSnapshot(w, snap); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		}),
	}
	jsonCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")

	cmd.AddCommand(csvCmd, xlsxCmd, jsonCmd)
	return cmd
}

// ─── import ─────────────────────────────────────────────────────────────────

func newImportCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore data from a backup",
	}

	jsonCmd := &cobra.Command{
		Use:   "json FILE",
		Short: "Replace all data with a JSON backup",
		Long: `Replace every session, record, debt, payment, category and setting with
the contents of FILE ("-" reads stdin). The budget balance is taken from
the backup as is.`,
		Args: cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			r, err := readFileOrStdin(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			snap, err := export.DecodeSnapshot(r)
			if err != nil {
				return err
			}
			if err := app.Ledger.Restore(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d sessions, %d finance records, %d debts, %d payments; balance %s\n",
				len(snap.WorkSessions), len(snap.FinanceRecords), len(snap.Debts), len(snap.DebtPayments),
				czk(snap.SharedBudget.Balance))
			return nil
		}),
	}

	cmd.AddCommand(jsonCmd)
	return cmd
}
