package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/daemon"
	"github.com/worktracker/worktracker/internal/domain"
)

// ─── rent ───────────────────────────────────────────────────────────────────

func newRentCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rent",
		Short: "Monthly rent from the shared budget",
		Long: `On the rent day the rent is paid from the shared budget when it covers
the amount; otherwise a high-priority rent debt is booked. Either happens
at most once per month.`,
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Resolve this month's rent if it is due today",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			st, err := app.Ledger.CheckRent(cmd.Context(), e.now().In(e.loc))
			if err != nil {
				return err
			}
			return e.emitRent(cmd, st)
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show this month's rent state",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			st, err := app.Ledger.RentStatus(cmd.Context(), e.now().In(e.loc))
			if err != nil {
				return err
			}
			return e.emitRent(cmd, st)
		}),
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Set the rent amount and day of month",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			rs, err := app.Ledger.RentSettings(cmd.Context())
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("amount") {
				s, _ := f.GetString("amount")
				if rs.Amount, err = parseDecimal("amount", s); err != nil {
					return err
				}
			}
			if f.Changed("day") {
				rs.Day, _ = f.GetInt("day")
			}
			if err := app.Ledger.SetRentSettings(cmd.Context(), rs); err != nil {
				return err
			}
			return e.emit(cmd, rs, func(w io.Writer) {
				fmt.Fprintf(w, "Amount:\t%s\n", czk(rs.Amount))
				fmt.Fprintf(w, "Day:\t%d\n", rs.Day)
			})
		}),
	}
	set.Flags().String("amount", "", "Monthly rent in CZK")
	set.Flags().Int("day", 0, "Day of month rent is due (1-31)")

	cmd.AddCommand(check, status, set)
	return cmd
}

func (e *env) emitRent(cmd *cobra.Command, st ledger.RentStatus) error {
	return e.emit(cmd, st, func(w io.Writer) {
		fmt.Fprintf(w, "Month:\t%d-%02d\n", st.Year, int(st.Month))
		fmt.Fprintf(w, "State:\t%s\n", st.State)
		fmt.Fprintf(w, "Amount:\t%s\n", czk(st.Amount))
		fmt.Fprintf(w, "Due:\t%s\n", dateOnly(st.DueDate))
		fmt.Fprintf(w, "Next due:\t%s\n", dateOnly(st.NextDueDate))
		if st.Action != ledger.RentActionNone {
			fmt.Fprintf(w, "Action:\t%s\n", st.Action)
		}
		if st.DebtID != "" {
			fmt.Fprintf(w, "Debt:\t%s\n", st.DebtID)
		}
	})
}

// ─── rates ──────────────────────────────────────────────────────────────────

func newRatesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Hourly and deduction rates per person",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the rates",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			return e.emitRates(cmd, app.Ledger.Rates())
		}),
	}

	set := &cobra.Command{
		Use:   "set PERSON",
		Short: "Set or add one person's rates",
		Long: `Set PERSON's hourly rate and deduction fraction. Existing sessions keep
the deduction they were recorded with.`,
		Example: `  worktracker rates set maru --rate 300 --deduction 0.35`,
		Args:    cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			person := domain.Person(args[0])
			rates := app.Ledger.Rates()
			f := cmd.Flags()
			if !rates.Has(person) && (!f.Changed("rate") || !f.Changed("deduction")) {
				return domain.Invalid("new person %q needs --rate and --deduction", person)
			}
			if f.Changed("rate") {
				s, _ := f.GetString("rate")
				v, err := parseDecimal("rate", s)
				if err != nil {
					return err
				}
				rates.Hourly[person] = v
			}
			if f.Changed("deduction") {
				s, _ := f.GetString("deduction")
				v, err := parseDecimal("deduction", s)
				if err != nil {
					return err
				}
				rates.Deduction[person] = v
			}
			if err := app.Ledger.UpdateRates(cmd.Context(), rates); err != nil {
				return err
			}
			return e.emitRates(cmd, app.Ledger.Rates())
		}),
	}
	set.Flags().String("rate", "", "Hourly rate in CZK")
	set.Flags().String("deduction", "", "Fraction of earnings for the shared budget (0-1)")

	cmd.AddCommand(show, set)
	return cmd
}

func (e *env) emitRates(cmd *cobra.Command, r domain.Rates) error {
	return e.emit(cmd, r, func(w io.Writer) {
		fmt.Fprintln(w, "PERSON\tHOURLY\tDEDUCTION")
		for _, p := range r.People() {
			fmt.Fprintf(w, "%s\t%s\t%s%%\n", p, czk(r.Hourly[p]), r.Deduction[p].Shift(2).StringFixed(2))
		}
	})
}

// ─── category ───────────────────────────────────────────────────────────────

func newCategoryCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Task and expense categories",
	}

	kindArg := func(s string) (domain.CategoryKind, error) {
		k := domain.CategoryKind(s)
		if !k.Valid() {
			return "", domain.Invalid("category kind must be task or expense, got %q", s)
		}
		return k, nil
	}

	list := &cobra.Command{
		Use:   "list task|expense",
		Short: "List categories",
		Args:  cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			kind, err := kindArg(args[0])
			if err != nil {
				return err
			}
			names, err := app.Ledger.Categories(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return e.emit(cmd, names, func(w io.Writer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		}),
	}

	add := &cobra.Command{
		Use:   "add task|expense NAME",
		Short: "Add a category",
		Args:  cobra.ExactArgs(2),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			kind, err := kindArg(args[0])
			if err != nil {
				return err
			}
			if err := app.Ledger.AddCategory(cmd.Context(), kind, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s category %q\n", kind, args[1])
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:   "remove task|expense NAME",
		Short: "Remove a category",
		Args:  cobra.ExactArgs(2),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			kind, err := kindArg(args[0])
			if err != nil {
				return err
			}
			if err := app.Ledger.RemoveCategory(cmd.Context(), kind, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s category %q\n", kind, args[1])
			return nil
		}),
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}
