package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/worktracker/worktracker/internal/daemon"
	"github.com/worktracker/worktracker/internal/domain"
)

// ─── budget ─────────────────────────────────────────────────────────────────

func newBudgetCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show and adjust the shared budget",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current balance",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			b, err := app.Ledger.Balance(cmd.Context())
			if err != nil {
				return err
			}
			return e.emit(cmd, b, func(w io.Writer) {
				fmt.Fprintf(w, "Balance:\t%s\n", czk(b.Balance))
				if !b.LastUpdated.IsZero() {
					fmt.Fprintf(w, "Updated:\t%s\n", b.LastUpdated.In(e.loc).Format(clockLayout))
				}
			})
		}),
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "List the newest budget journal entries",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := app.Ledger.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return e.emit(cmd, entries, func(w io.Writer) {
				fmt.Fprintln(w, "TIME\tSOURCE\tAMOUNT\tBALANCE\tREF")
				for _, en := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						en.CreatedAt.In(e.loc).Format(clockLayout), en.Source,
						en.Amount.StringFixed(0), en.Balance.StringFixed(0), en.RefID)
				}
			})
		}),
	}
	history.Flags().Int("limit", 20, "Number of entries (0 for all)")

	settle := &cobra.Command{
		Use:   "settle",
		Short: "Pay down open debts from a positive balance",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			payments, err := app.Ledger.Settle(cmd.Context())
			if err != nil {
				return err
			}
			return e.emit(cmd, payments, func(w io.Writer) {
				if len(payments) == 0 {
					fmt.Fprintln(w, "Nothing to settle.")
					return
				}
				fmt.Fprintln(w, "DEBT\tAMOUNT")
				for _, p := range payments {
					fmt.Fprintf(w, "%s\t%s\n", p.DebtID, czk(p.Amount))
				}
			})
		}),
	}

	adjust := &cobra.Command{
		Use:   "adjust AMOUNT",
		Short: "Apply a manual correction to the balance",
		Long: `Add AMOUNT (negative to subtract) to the shared budget. A positive result
pays down open debts like any other surplus. Put -- before a negative
amount: worktracker budget adjust -- -500`,
		Args: cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			amount, err := parseDecimal("amount", args[0])
			if err != nil {
				return err
			}
			if amount.IsZero() {
				return domain.Invalid("amount must not be zero")
			}
			note, _ := cmd.Flags().GetString("note")
			balance, err := app.Ledger.ApplyDelta(cmd.Context(), amount, domain.SourceManual, note)
			if err != nil {
				return err
			}
			return e.emit(cmd, map[string]any{"balance": balance}, func(w io.Writer) {
				fmt.Fprintf(w, "Balance:\t%s\n", czk(balance))
			})
		}),
	}
	adjust.Flags().String("note", "", "Reference stored in the journal")

	cmd.AddCommand(show, history, settle, adjust)
	return cmd
}
