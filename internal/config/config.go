package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "plancal/internal/errors"
)

// Icon persistence policies. See Config.IconPersistence.
const (
	IconPersistenceLocal  = "local-only"
	IconPersistenceRemote = "remote-synced"
)

// Icon advance triggers. See Config.IconAdvance.
const (
	IconAdvanceIcon = "icon-click"
	IconAdvanceDay  = "day-click"
)

// TokenEnv overrides Config.Token when set.
const TokenEnv = "PLANCAL_TOKEN"

// BasicAuthConfig holds HTTP Basic Auth credentials for the rendering API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the rendering API.
	Listen string `yaml:"listen" json:"listen"`

	// APIURL is the remote store base URL; event routes hang off {APIURL}/events.
	APIURL string `yaml:"api_url" json:"api_url"`

	// Token is the bearer token passed through to the remote store untouched.
	Token string `yaml:"token,omitempty" json:"-"`

	// Timezone is the IANA display timezone (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is informational for clients; the grid itself always starts on
	// Sunday.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for periodic re-fetch. "off" disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// IconPersistence selects where icon clicks are persisted:
	//   - "local-only" (default): the durable local store only
	//   - "remote-synced": also pushed to the day's first event
	IconPersistence string `yaml:"icon_persistence" json:"icon_persistence"`

	// IconAdvance selects which clicks move a day's icon on:
	//   - "icon-click" (default): only clicks on the icon itself
	//   - "day-click": clicks on the day cell as well, which also open the
	//     create dialog
	IconAdvance string `yaml:"icon_advance" json:"icon_advance"`

	// IconStorePath is the JSON file backing the durable icon store.
	IconStorePath string `yaml:"icon_store_path" json:"icon_store_path"`

	// RequestTimeoutSeconds bounds each remote request.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                "127.0.0.1:8080",
		APIURL:                "http://localhost:5000/api",
		Timezone:              "Asia/Seoul",
		WeekStart:             "sunday",
		RefreshCron:           "*/15 * * * *",
		IconPersistence:       IconPersistenceLocal,
		IconAdvance:           IconAdvanceIcon,
		IconStorePath:         "./var/icons.json",
		RequestTimeoutSeconds: 15,
		LogLevel:              "info",
		BasicAuth:             nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.IconStorePath == "" {
		c.IconStorePath = def.IconStorePath
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = def.RequestTimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.IconPersistence == "" {
		c.IconPersistence = def.IconPersistence
	}
	if c.IconAdvance == "" {
		c.IconAdvance = def.IconAdvance
	}
}

// Validate reports settings that cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.IconPersistence {
	case IconPersistenceLocal, IconPersistenceRemote:
	default:
		return apperrors.ConfigInvalid("icon_persistence must be local-only or remote-synced").
			WithDetail("icon_persistence", c.IconPersistence)
	}
	switch c.IconAdvance {
	case IconAdvanceIcon, IconAdvanceDay:
	default:
		return apperrors.ConfigInvalid("icon_advance must be icon-click or day-click").
			WithDetail("icon_advance", c.IconAdvance)
	}
	return nil
}

// ApplyEnv overlays environment overrides (currently only the token).
func (c *Config) ApplyEnv() {
	if tok := os.Getenv(TokenEnv); tok != "" {
		c.Token = tok
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "config is not valid YAML").
			WithDetail("path", path)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file in the same directory, then rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".plancal-config-*.tmp")
}

// WriteFileAtomic writes data next to path and renames it into place.
// The parent directory is created with 0700 if missing.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
