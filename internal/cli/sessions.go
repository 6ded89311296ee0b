package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/app/timer"
	"github.com/worktracker/worktracker/internal/daemon"
	"github.com/worktracker/worktracker/internal/domain"
)

// ─── session ────────────────────────────────────────────────────────────────

func newSessionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Record and manage work sessions",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a work session by hand",
		Example: `  worktracker session add --person maru --activity Marketing \
    --date 2025-03-10 --start 09:00 --end 12:30 --break 30`,
		Args: cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			f := cmd.Flags()
			m := ledger.ManualSession{}
			person, _ := f.GetString("person")
			m.Person = domain.Person(person)
			m.Activity, _ = f.GetString("activity")
			m.Subcategory, _ = f.GetString("sub")
			m.Note, _ = f.GetString("note")
			m.Start, _ = f.GetString("start")
			m.End, _ = f.GetString("end")
			m.BreakMinutes, _ = f.GetInt("break")
			date, _ := f.GetString("date")
			day, err := e.parseDate("date", date)
			if err != nil {
				return err
			}
			m.Date = day.Format(dateLayout)

			in, err := m.Input(e.loc)
			if err != nil {
				return err
			}
			ws, err := app.Ledger.CreateWorkSession(cmd.Context(), in)
			if err != nil {
				return err
			}
			return e.emitSession(cmd, ws)
		}),
	}
	sessionFlags(add)

	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a work session",
		Long: `Change the flags given; everything else is kept. Changing the date or
times re-derives the duration from start, end and break.`,
		Args: cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			ws, err := app.Ledger.GetWorkSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in, err := e.editSessionInput(cmd, ws)
			if err != nil {
				return err
			}
			updated, err := app.Ledger.UpdateWorkSession(cmd.Context(), ws.ID, in)
			if err != nil {
				return err
			}
			return e.emitSession(cmd, updated)
		}),
	}
	sessionFlags(edit)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a work session and reverse its deduction",
		Args:  cobra.ExactArgs(1),
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			if err := app.Ledger.DeleteWorkSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List work sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			filter, err := e.sessionFilter(cmd)
			if err != nil {
				return err
			}
			sessions, err := app.Ledger.ListWorkSessions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return e.emit(cmd, sessions, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tPERSON\tACTIVITY\tSTART\tHOURS\tEARNINGS\tDEDUCTION")
				for _, s := range sessions {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						s.ID, s.Person, s.Activity, s.StartTime.In(e.loc).Format(clockLayout),
						s.Hours().StringFixed(2), s.Earnings.StringFixed(0), s.Deduction.StringFixed(0))
				}
			})
		}),
	}
	filterFlags(list)

	cmd.AddCommand(add, edit, del, list)
	return cmd
}

func sessionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("person", "", "Who worked")
	f.String("activity", "", "Task category")
	f.String("sub", "", "Subcategory")
	f.String("note", "", "Free-text note")
	f.String("date", "", "Day worked, YYYY-MM-DD (default today)")
	f.String("start", "", "Start time, HH:MM")
	f.String("end", "", "End time, HH:MM")
	f.Int("break", 0, "Break in minutes")
}

func filterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("person", "", "Only this person")
	f.String("activity", "", "Only this activity")
	f.String("from", "", "First day, YYYY-MM-DD")
	f.String("to", "", "Last day, YYYY-MM-DD")
}

// sessionFilter reads filterFlags. --to includes the whole day.
func (e *env) sessionFilter(cmd *cobra.Command) (domain.WorkSessionFilter, error) {
	f := cmd.Flags()
	person, _ := f.GetString("person")
	activity, _ := f.GetString("activity")
	filter := domain.WorkSessionFilter{Person: domain.Person(person), Activity: activity}
	if from, _ := f.GetString("from"); from != "" {
		t, err := e.parseDate("from", from)
		if err != nil {
			return filter, err
		}
		filter.From = t
	}
	if to, _ := f.GetString("to"); to != "" {
		t, err := e.parseDate("to", to)
		if err != nil {
			return filter, err
		}
		filter.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return filter, nil
}

// editSessionInput applies the changed flags over ws.
func (e *env) editSessionInput(cmd *cobra.Command, ws *domain.WorkSession) (ledger.WorkSessionInput, error) {
	f := cmd.Flags()
	in := ledger.WorkSessionInput{
		Person:       ws.Person,
		Activity:     ws.Activity,
		Subcategory:  ws.Subcategory,
		Note:         ws.Note,
		StartTime:    ws.StartTime,
		EndTime:      ws.EndTime,
		BreakMinutes: ws.BreakMinutes,
		DurationMs:   ws.DurationMs,
	}
	if f.Changed("person") {
		p, _ := f.GetString("person")
		in.Person = domain.Person(p)
	}
	if f.Changed("activity") {
		in.Activity, _ = f.GetString("activity")
	}
	if f.Changed("sub") {
		in.Subcategory, _ = f.GetString("sub")
	}
	if f.Changed("note") {
		in.Note, _ = f.GetString("note")
	}
	if !f.Changed("date") && !f.Changed("start") && !f.Changed("end") && !f.Changed("break") {
		return in, nil
	}

	start, end := ws.StartTime.In(e.loc), ws.EndTime.In(e.loc)
	m := ledger.ManualSession{
		Person:       in.Person,
		Date:         start.Format(dateLayout),
		Start:        start.Format("15:04"),
		End:          end.Format("15:04"),
		BreakMinutes: ws.BreakMinutes,
		Activity:     in.Activity,
		Subcategory:  in.Subcategory,
		Note:         in.Note,
	}
	if f.Changed("date") {
		m.Date, _ = f.GetString("date")
	}
	if f.Changed("start") {
		m.Start, _ = f.GetString("start")
	}
	if f.Changed("end") {
		m.End, _ = f.GetString("end")
	}
	if f.Changed("break") {
		m.BreakMinutes, _ = f.GetInt("break")
	}
	return m.Input(e.loc)
}

func (e *env) emitSession(cmd *cobra.Command, ws *domain.WorkSession) error {
	return e.emit(cmd, ws, func(w io.Writer) {
		fmt.Fprintf(w, "ID:\t%s\n", ws.ID)
		fmt.Fprintf(w, "Person:\t%s\n", ws.Person)
		fmt.Fprintf(w, "Activity:\t%s\n", ws.Activity)
		fmt.Fprintf(w, "Time:\t%s - %s\n", ws.StartTime.In(e.loc).Format(clockLayout), ws.EndTime.In(e.loc).Format("15:04"))
		fmt.Fprintf(w, "Hours:\t%s\n", ws.Hours().StringFixed(2))
		fmt.Fprintf(w, "Earnings:\t%s\n", czk(ws.Earnings))
		fmt.Fprintf(w, "Deduction:\t%s\n", czk(ws.Deduction))
	})
}

// ─── timer ──────────────────────────────────────────────────────────────────

func newTimerCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Time a work session live",
		Long: `The timer survives restarts: it is stored in the database, so a session
can be started in one invocation and stopped in another.`,
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the timer",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			f := cmd.Flags()
			person, _ := f.GetString("person")
			in := timer.StartInput{Person: domain.Person(person)}
			in.Activity, _ = f.GetString("activity")
			in.Subcategory, _ = f.GetString("sub")
			in.Note, _ = f.GetString("note")
			st, err := app.Timer.Start(cmd.Context(), in)
			if err != nil {
				return err
			}
			return e.emitTimer(cmd, st)
		}),
	}
	start.Flags().String("person", "", "Who is working")
	start.Flags().String("activity", "", "Task category")
	start.Flags().String("sub", "", "Subcategory")
	start.Flags().String("note", "", "Free-text note")

	simple := func(use, short string, fn func(app *daemon.App, cmd *cobra.Command) (timer.Status, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
				st, err := fn(app, cmd)
				if err != nil {
					return err
				}
				return e.emitTimer(cmd, st)
			}),
		}
	}
	pause := simple("pause", "Pause the timer", func(app *daemon.App, cmd *cobra.Command) (timer.Status, error) {
		return app.Timer.Pause(cmd.Context())
	})
	resume := simple("resume", "Resume a paused timer", func(app *daemon.App, cmd *cobra.Command) (timer.Status, error) {
		return app.Timer.Resume(cmd.Context())
	})
	status := simple("status", "Show the timer and its earnings so far", func(app *daemon.App, cmd *cobra.Command) (timer.Status, error) {
		return app.Timer.Status(cmd.Context())
	})

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the timer and save the session",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			ws, err := app.Timer.Stop(cmd.Context())
			if err != nil {
				return err
			}
			return e.emitSession(cmd, ws)
		}),
	}

	discard := &cobra.Command{
		Use:   "discard",
		Short: "Drop the timer without saving",
		Args:  cobra.NoArgs,
		RunE: e.withApp(func(cmd *cobra.Command, args []string, app *daemon.App) error {
			if err := app.Timer.Discard(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Timer discarded.")
			return nil
		}),
	}

	cmd.AddCommand(start, pause, resume, stop, status, discard)
	return cmd
}

func (e *env) emitTimer(cmd *cobra.Command, st timer.Status) error {
	return e.emit(cmd, st, func(w io.Writer) {
		if !st.Active {
			fmt.Fprintln(w, "No timer running.")
			return
		}
		state := "running"
		if !st.State.Running {
			state = "paused"
		}
		elapsed := time.Duration(st.ElapsedMs) * time.Millisecond
		fmt.Fprintf(w, "State:\t%s\n", state)
		fmt.Fprintf(w, "Person:\t%s\n", st.State.Person)
		fmt.Fprintf(w, "Activity:\t%s\n", st.State.Activity)
		fmt.Fprintf(w, "Elapsed:\t%s\n", elapsed.Truncate(time.Second))
		fmt.Fprintf(w, "Earnings:\t%s\n", czk(st.Earnings))
		fmt.Fprintf(w, "Deduction:\t%s\n", czk(st.Deduction))
	})
}
