package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ehr/clinicalnotes/internal/domain/identity"
	"github.com/ehr/clinicalnotes/internal/platform/notes"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env            string `mapstructure:"ENV"`
	Port           string `mapstructure:"PORT"`
	StoreDriver    string `mapstructure:"STORE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	SQLitePath     string `mapstructure:"SQLITE_PATH"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS"`
	CCDADir        string `mapstructure:"CCDA_DIR"`
	NotesDir       string `mapstructure:"NOTES_DIR"`
	CCDAExt        string `mapstructure:"CCDA_EXT"`
	NotesExt       string `mapstructure:"NOTES_EXT"`
	NotesEncoding  string `mapstructure:"NOTES_ENCODING"`
	NotesMarker    string `mapstructure:"NOTES_MARKER"`
	AmbiguousMatch string `mapstructure:"AMBIGUOUS_MATCH"`
	ProgressEvery  int    `mapstructure:"PROGRESS_EVERY"`
	DryRun         bool   `mapstructure:"DRY_RUN"`
	FormUser       string `mapstructure:"FORM_USER"`
	FormGroup      string `mapstructure:"FORM_GROUP"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8000")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CCDA_EXT", ".xml")
	v.SetDefault("NOTES_EXT", ".txt")
	v.SetDefault("NOTES_ENCODING", "utf-8")
	v.SetDefault("NOTES_MARKER", string(notes.MarkerStrict))
	v.SetDefault("AMBIGUOUS_MATCH", string(identity.AmbiguityReject))
	v.SetDefault("PROGRESS_EVERY", 100)
	v.SetDefault("DRY_RUN", false)
	v.SetDefault("FORM_USER", "admin")
	v.SetDefault("FORM_GROUP", "Default")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"ENV", "PORT", "STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
		"DB_MAX_CONNS", "DB_MIN_CONNS", "CCDA_DIR", "NOTES_DIR", "CCDA_EXT",
		"NOTES_EXT", "NOTES_ENCODING", "NOTES_MARKER", "AMBIGUOUS_MATCH",
		"PROGRESS_EVERY", "DRY_RUN", "FORM_USER", "FORM_GROUP",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// MarkerMode returns the parsed NOTES_MARKER value.
func (c *Config) MarkerMode() (notes.MarkerMode, error) {
	return notes.ParseMarkerMode(c.NotesMarker)
}

// AmbiguityPolicy returns the parsed AMBIGUOUS_MATCH value.
func (c *Config) AmbiguityPolicy() (identity.AmbiguityPolicy, error) {
	return identity.ParseAmbiguityPolicy(c.AmbiguousMatch)
}

// Validate checks the store settings and the enumerated options. Directory
// settings are checked separately by ValidateImport since only the import
// command needs them.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is %q", DriverSQLite)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.StoreDriver)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if _, err := c.MarkerMode(); err != nil {
		return fmt.Errorf("NOTES_MARKER: %w", err)
	}
	if _, err := c.AmbiguityPolicy(); err != nil {
		return fmt.Errorf("AMBIGUOUS_MATCH: %w", err)
	}
	if c.ProgressEvery <= 0 {
		return fmt.Errorf("PROGRESS_EVERY must be positive, got %d", c.ProgressEvery)
	}
	return nil
}

// ValidateImport checks the settings the import command needs on top of
// Validate.
func (c *Config) ValidateImport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CCDADir == "" {
		return fmt.Errorf("CCDA_DIR is required")
	}
	if c.NotesDir == "" {
		return fmt.Errorf("NOTES_DIR is required")
	}
	if !strings.HasPrefix(c.CCDAExt, ".") || !strings.HasPrefix(c.NotesExt, ".") {
		return fmt.Errorf("CCDA_EXT and NOTES_EXT must start with a dot, got %q and %q", c.CCDAExt, c.NotesExt)
	}
	return nil
}
