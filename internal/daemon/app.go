package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/worktracker/worktracker/internal/app/export"
	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/app/report"
	"github.com/worktracker/worktracker/internal/app/timer"
	"github.com/worktracker/worktracker/internal/infra/sqlite"
)

// App holds the services behind one open store.
type App struct {
	Config  Config
	DB      *sqlite.DB
	Ledger  *ledger.Engine
	Timer   *timer.Timer
	Reports *report.Service
	Exports *export.Service
	Log     *slog.Logger
}

// Open opens the store at the configured path, seeds it on first run and,
// when enabled, resolves the current month's rent.
func Open(ctx context.Context, cfg Config, home string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path := cfg.DBPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.OpenPath(path)
	if err != nil {
		return nil, err
	}

	eng := ledger.New(cfg.LedgerConfig(), db, logger)
	if err := eng.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	a := &App{
		Config:  cfg,
		DB:      db,
		Ledger:  eng,
		Timer:   timer.New(eng, db, logger),
		Reports: report.New(eng),
		Exports: export.New(eng, time.Local),
		Log:     logger.With("component", "daemon"),
	}
	if err := a.Timer.Sync(ctx); err != nil {
		a.Log.Warn("timer state unreadable", "error", err)
	}

	if cfg.Rent.CheckOnStart {
		st, err := eng.CheckRent(ctx, time.Now())
		if err != nil {
			db.Close()
			return nil, err
		}
		a.Log.Debug("rent checked", "state", st.State, "action", st.Action)
	}
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.DB.Close()
}

// ListenAndServe serves handler on the configured address until ctx is
// cancelled, then shuts down gracefully.
func (a *App) ListenAndServe(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Streaming handlers end when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("api listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
