package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/daemon"
	"github.com/worktracker/worktracker/internal/domain"
)

// ─── finance ────────────────────────────────────────────────────────────────

func newFinanceCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Record income and expenses",
		Long: `Income and expenses in CZK move the shared budget; other currencies are
recorded for reference only.`,
	}

	add := &cobra.Command{
		Use:     "add",
		Short:   "Add an income or expense",
		Example: `  worktracker finance add --type expense --amount 1250 --category Jídlo --desc groceries`,
		Args:    cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			in, err := e.financeInput(cmd, ledger.FinanceInput{})
			if err != nil {
				return err
			}
			rec, err := app.Ledger.CreateFinanceRecord(cmd.Context(), in)
			if err != nil {
				return err
			}
			return e.emitFinance(cmd, []domain.FinanceRecord{*rec})
		}),
	}
	financeFlags(add)

	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a finance record",
		Args:  cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			rec, err := app.Ledger.GetFinanceRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in, err := e.financeInput(cmd, ledger.FinanceInput{
				Type:        rec.Type,
				Amount:      rec.Amount,
				Currency:    rec.Currency,
				Category:    rec.Category,
				Date:        rec.Date,
				Description: rec.Description,
			})
			if err != nil {
				return err
			}
			updated, err := app.Ledger.UpdateFinanceRecord(cmd.Context(), rec.ID, in)
			if err != nil {
				return err
			}
			return e.emitFinance(cmd, []domain.FinanceRecord{*updated})
		}),
	}
	financeFlags(edit)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a finance record and reverse its effect",
		Args:  cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			if err := app.Ledger.DeleteFinanceRecord(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List finance records, newest first",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			records, err := app.Ledger.ListFinanceRecords(cmd.Context())
			if err != nil {
				return err
			}
			return e.emitFinance(cmd, records)
		}),
	}

	cmd.AddCommand(add, edit, del, list)
	return cmd
}

func financeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("type", "", "income or expense")
	f.String("amount", "", "Amount")
	f.String("currency", "", "Currency code (default CZK)")
	f.String("category", "", "Expense category")
	f.String("date", "", "Date, YYYY-MM-DD (default today)")
	f.String("desc", "", "Description")
}

// financeInput applies the set flags over base. On add every unset flag
// keeps its zero value, except the date which defaults to today.
func (e *env) financeInput(cmd *cobra.Command, base ledger.FinanceInput) (ledger.FinanceInput, error) {
	f := cmd.Flags()
	in := base
	if f.Changed("type") {
		t, _ := f.GetString("type")
		in.Type = domain.RecordType(t)
	}
	if f.Changed("amount") {
		s, _ := f.GetString("amount")
		amount, err := parseDecimal("amount", s)
		if err != nil {
			return in, err
		}
		in.Amount = amount
	}
	if f.Changed("currency") {
		in.Currency, _ = f.GetString("currency")
	}
	if f.Changed("category") {
		in.Category, _ = f.GetString("category")
	}
	if f.Changed("desc") {
		in.Description, _ = f.GetString("desc")
	}
	if f.Changed("date") || in.Date.IsZero() {
		s, _ := f.GetString("date")
		d, err := e.parseDate("date", s)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	return in, nil
}

func (e *env) emitFinance(cmd *cobra.Command, records []domain.FinanceRecord) error {
	return e.emit(cmd, records, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, dateOnly(r.Date), r.Type, money(r.Amount, r.Currency), r.Category, r.Description)
		}
	})
}

// ─── debt ───────────────────────────────────────────────────────────────────

func newDebtCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "debt",
		Aliases: []string{"debts"},
		Short:   "Track debts and their payments",
		Long: `Open CZK debts are paid automatically from a positive shared budget:
high priority first, then the oldest. Manual payments made outside the
budget are recorded with "debt pay".`,
	}

	add := &cobra.Command{
		Use:     "add",
		Short:   "Add a debt",
		Example: `  worktracker debt add --person marty --desc "car repair" --amount 8000 --priority high`,
		Args:    cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			in, err := e.debtInput(cmd, ledger.DebtInput{})
			if err != nil {
				return err
			}
			d, err := app.Ledger.CreateDebt(cmd.Context(), in)
			if err != nil {
				return err
			}
			st, err := app.Ledger.GetDebt(cmd.Context(), d.ID)
			if err != nil {
				return err
			}
			return e.emitDebts(cmd, []domain.DebtStatus{*st})
		}),
	}
	debtFlags(add)

	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a debt",
		Args:  cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			cur, err := app.Ledger.GetDebt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			d := cur.Debt
			in, err := e.debtInput(cmd, ledger.DebtInput{
				Person:      d.Person,
				Description: d.Description,
				Amount:      d.Amount,
				Currency:    d.Currency,
				Date:        d.Date,
				DueDate:     d.DueDate,
				Creditor:    d.Creditor,
				Priority:    d.Priority,
			})
			if err != nil {
				return err
			}
			if _, err := app.Ledger.UpdateDebt(cmd.Context(), d.ID, in); err != nil {
				return err
			}
			st, err := app.Ledger.GetDebt(cmd.Context(), d.ID)
			if err != nil {
				return err
			}
			return e.emitDebts(cmd, []domain.DebtStatus{*st})
		}),
	}
	debtFlags(edit)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a debt and its payments",
		Args:  cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			if err := app.Ledger.DeleteDebt(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List debts with paid and remaining amounts",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			debts, err := app.Ledger.ListDebts(cmd.Context())
			if err != nil {
				return err
			}
			if open, _ := cmd.Flags().GetBool("open"); open {
				kept := debts[:0]
				for _, st := range debts {
					if !st.Settled {
						kept = append(kept, st)
					}
				}
				debts = kept
			}
			return e.emitDebts(cmd, debts)
		}),
	}
	list.Flags().Bool("open", false, "Only debts with something left to pay")

	pay := &cobra.Command{
		Use:   "pay ID",
		Short: "Record a manual payment made outside the shared budget",
		Args:  cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			f := cmd.Flags()
			s, _ := f.GetString("amount")
			amount, err := parseDecimal("amount", s)
			if err != nil {
				return err
			}
			date, _ := f.GetString("date")
			day, err := e.parseDate("date", date)
			if err != nil {
				return err
			}
			note, _ := f.GetString("note")
			p, err := app.Ledger.RecordPayment(cmd.Context(), args[0], ledger.PaymentInput{Amount: amount, Date: day, Note: note})
			if err != nil {
				return err
			}
			return e.emitPayments(cmd, []domain.DebtPayment{*p})
		}),
	}
	pay.Flags().String("amount", "", "Amount paid")
	pay.Flags().String("date", "", "Payment date, YYYY-MM-DD (default today)")
	pay.Flags().String("note", "", "Note")

	payments := &cobra.Command{
		Use:   "payments [ID]",
		Short: "List payments, of one debt or of all",
		Args:  cobra.MaximumNArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			var (
				list []domain.DebtPayment
				err  error
			)
			if len(args) == 1 {
				if _, err := app.Ledger.GetDebt(cmd.Context(), args[0]); err != nil {
					return err
				}
				list, err = app.Ledger.ListPayments(cmd.Context(), args[0])
			} else {
				list, err = app.Ledger.ListAllPayments(cmd.Context())
			}
			if err != nil {
				return err
			}
			return e.emitPayments(cmd, list)
		}),
	}

	cmd.AddCommand(add, edit, del, list, pay, payments)
	return cmd
}

func debtFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("person", "", "Who owes")
	f.String("desc", "", "Description")
	f.String("amount", "", "Amount owed")
	f.String("currency", "", "Currency code (default CZK)")
	f.String("date", "", "Date incurred, YYYY-MM-DD (default today)")
	f.String("due", "", "Due date, YYYY-MM-DD (empty to clear)")
	f.String("creditor", "", "Who is owed")
	f.String("priority", "", "high, medium or low")
}

func (e *env) debtInput(cmd *cobra.Command, base ledger.DebtInput) (ledger.DebtInput, error) {
	f := cmd.Flags()
	in := base
	if f.Changed("person") {
		p, _ := f.GetString("person")
		in.Person = domain.Person(p)
	}
	if f.Changed("desc") {
		in.Description, _ = f.GetString("desc")
	}
	if f.Changed("amount") {
		s, _ := f.GetString("amount")
		amount, err := parseDecimal("amount", s)
		if err != nil {
			return in, err
		}
		in.Amount = amount
	}
	if f.Changed("currency") {
		in.Currency, _ = f.GetString("currency")
	}
	if f.Changed("creditor") {
		in.Creditor, _ = f.GetString("creditor")
	}
	if f.Changed("priority") {
		p, _ := f.GetString("priority")
		in.Priority = domain.Priority(p)
	}
	if f.Changed("date") || in.Date.IsZero() {
		s, _ := f.GetString("date")
		d, err := e.parseDate("date", s)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	if f.Changed("due") {
		s, _ := f.GetString("due")
		if s == "" {
			in.DueDate = nil
		} else {
			d, err := e.parseDate("due", s)
			if err != nil {
				return in, err
			}
			in.DueDate = &d
		}
	}
	return in, nil
}

func (e *env) emitDebts(cmd *cobra.Command, debts []domain.DebtStatus) error {
	return e.emit(cmd, debts, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tPERSON\tDESCRIPTION\tAMOUNT\tPAID\tREMAINING\tPRIORITY\tDUE")
		for _, st := range debts {
			d := st.Debt
			due := "-"
			if d.DueDate != nil {
				due = dateOnly(*d.DueDate)
			}
			priority := d.Priority
			if priority == "" {
				priority = domain.PriorityMedium
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				d.ID, d.Person, d.Description, money(d.Amount, d.Currency),
				st.Paid.StringFixed(2), st.Remaining.StringFixed(2), priority, due)
		}
	})
}

func (e *env) emitPayments(cmd *cobra.Command, payments []domain.DebtPayment) error {
	return e.emit(cmd, payments, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tDEBT\tDATE\tAMOUNT\tAUTO\tNOTE")
		for _, p := range payments {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
				p.ID, p.DebtID, dateOnly(p.Date), p.Amount.StringFixed(2), p.Auto, p.Note)
		}
	})
}
