// Package daemon loads configuration and assembles the worktracker services
// shared by the CLI and the HTTP server.
package daemon

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/sqlite"
)

// ConfigFileName is the config file inside the home directory.
const ConfigFileName = "config.toml"

// Config is the full worktracker configuration.
//
// Precedence: defaults, then config.toml, then WORKTRACKER_* environment
// variables.
type Config struct {
	Store   StoreConfig             `toml:"store"`
	API     APIConfig               `toml:"api"`
	Log     LogConfig               `toml:"log"`
	Metrics MetricsConfig           `toml:"metrics"`
	People  map[string]PersonConfig `toml:"people"`
	Rent    RentConfig              `toml:"rent"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `toml:"path" env:"WORKTRACKER_DB"` // empty: <home>/worktracker.db
}

// APIConfig is the HTTP listener. The API has no authentication; keep it on
// loopback.
type APIConfig struct {
	Host string `toml:"host" env:"WORKTRACKER_API_HOST"`
	Port int    `toml:"port" env:"WORKTRACKER_API_PORT"`
	// Browser origins allowed to call the API. Empty refuses every
	// cross-origin request.
	AllowedOrigins []string `toml:"allowed_origins" env:"WORKTRACKER_API_ALLOWED_ORIGINS" envSeparator:","`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `toml:"level" env:"WORKTRACKER_LOG_LEVEL"`   // debug, info, warn, error
	Format string `toml:"format" env:"WORKTRACKER_LOG_FORMAT"` // text or json
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" env:"WORKTRACKER_METRICS"`
}

// PersonConfig seeds one person's rates on first init.
type PersonConfig struct {
	HourlyRate    float64 `toml:"hourly_rate"`
	DeductionRate float64 `toml:"deduction_rate"`
}

// RentConfig controls the rent scheduler.
type RentConfig struct {
	Landlord     string `toml:"landlord" env:"WORKTRACKER_RENT_LANDLORD"`
	Debtor       string `toml:"debtor" env:"WORKTRACKER_RENT_DEBTOR"`
	GraceDays    int    `toml:"grace_days" env:"WORKTRACKER_RENT_GRACE_DAYS"`
	CheckOnStart bool   `toml:"check_on_start" env:"WORKTRACKER_RENT_CHECK_ON_START"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	lc := ledger.DefaultConfig()
	return Config{
		API:     APIConfig{Host: "127.0.0.1", Port: 8547},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true},
		People: map[string]PersonConfig{
			"maru":  {HourlyRate: 275, DeductionRate: 0.3333},
			"marty": {HourlyRate: 400, DeductionRate: 0.5},
		},
		Rent: RentConfig{
			Landlord:     lc.Landlord,
			Debtor:       string(lc.RentDebtor),
			GraceDays:    int(lc.RentGrace / (24 * time.Hour)),
			CheckOnStart: true,
		},
	}
}

// Home returns the worktracker home directory: $WORKTRACKER_HOME, or
// ~/.worktracker.
func Home() (string, error) {
	if h := os.Getenv("WORKTRACKER_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".worktracker"), nil
}

// LoadConfig reads path over the defaults and applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		// A [people] table in the file replaces the default people.
		defaults := cfg.People
		cfg.People = nil
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		if len(cfg.People) == 0 {
			cfg.People = defaults
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values the services cannot start with.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return domain.Invalid("api.port %d out of range", c.API.Port)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return domain.Invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Rent.GraceDays < 0 {
		return domain.Invalid("rent.grace_days must not be negative")
	}
	return c.Rates().Validate()
}

// DBPath returns the database file, defaulting into home.
func (c Config) DBPath(home string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(home, sqlite.FileName)
}

// Addr returns host:port for the API listener.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// Rates converts the [people] section into seed rates.
func (c Config) Rates() domain.Rates {
	r := domain.Rates{
		Hourly:    make(map[domain.Person]decimal.Decimal, len(c.People)),
		Deduction: make(map[domain.Person]decimal.Decimal, len(c.People)),
	}
	for name, p := range c.People {
		r.Hourly[domain.Person(name)] = decimal.NewFromFloat(p.HourlyRate)
		r.Deduction[domain.Person(name)] = decimal.NewFromFloat(p.DeductionRate)
	}
	return r
}

// LedgerConfig maps the configuration onto the ledger engine.
func (c Config) LedgerConfig() ledger.Config {
	lc := ledger.DefaultConfig()
	if c.Rent.Landlord != "" {
		lc.Landlord = c.Rent.Landlord
	}
	if c.Rent.Debtor != "" {
		lc.RentDebtor = domain.Person(c.Rent.Debtor)
	}
	lc.RentGrace = time.Duration(c.Rent.GraceDays) * 24 * time.Hour
	lc.SeedRates = c.Rates()
	return lc
}

// ─── Logging ────────────────────────────────────────────────────────────────

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return lvl, domain.Invalid("log.level %q: %v", s, err)
	}
	return lvl, nil
}

// NewLogger builds the process logger from the [log] section.
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	lvl, err := parseLevel(c.Level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
