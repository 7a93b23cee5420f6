// Package config handles loading and resolving server configuration.
// Resolution order (later layers win):
//  1. built-in defaults
//  2. YAML file: --config flag, PINMETO_CONFIG, or ./pinmeto.yaml
//  3. PINMETO_* environment variables
//
// API URL overrides are only honoured when env is "development".
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/validation"
)

const (
	DefaultConfigFile      = "pinmeto.yaml"
	DefaultAPIURL          = "https://api.pinmeto.com"
	DefaultLocationsAPIURL = "https://locations.api.pinmeto.com"
	DefaultCacheTTL        = 5 * time.Minute
	DefaultRate            = 10.0
	EnvPrefix              = "PINMETO_"
	EnvConfigPath          = "PINMETO_CONFIG"

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Config is the fully-resolved runtime configuration.
type Config struct {
	AccountID       string        `koanf:"account_id" validate:"required"`
	AppID           string        `koanf:"app_id" validate:"required"`
	AppSecret       string        `koanf:"app_secret" validate:"required"`
	APIURL          string        `koanf:"api_url" validate:"required,url"`
	LocationsAPIURL string        `koanf:"locations_api_url" validate:"required,url"`
	Env             string        `koanf:"env" validate:"oneof=production development"`
	CacheTTL        time.Duration `koanf:"cache_ttl" validate:"gt=0"`
	Rate            float64       `koanf:"rate" validate:"gte=0"`
	MaxPages        int           `koanf:"max_pages" validate:"gte=0"`
	Breaker         bool          `koanf:"breaker"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	Log             LogConfig     `koanf:"log"`

	// ConfigPath is the YAML file that was loaded (empty if none).
	ConfigPath string `koanf:"-"`
	// Warnings collects non-fatal problems found while loading.
	Warnings []string `koanf:"-"`
}

func defaultConfig() *Config {
	return &Config{
		APIURL:          DefaultAPIURL,
		LocationsAPIURL: DefaultLocationsAPIURL,
		Env:             EnvProduction,
		CacheTTL:        DefaultCacheTTL,
		Rate:            DefaultRate,
		Breaker:         true,
		Log:             LogConfig{Level: "info", Format: "json"},
	}
}

// Load resolves configuration from all sources. path is the value of
// --config (empty when not set). Load does not validate; call Validate.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	cfgPath, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}
	if cfgPath != "" {
		if err := k.Load(file.Provider(cfgPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", cfgPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.ConfigPath = cfgPath
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.LocationsAPIURL = strings.TrimRight(cfg.LocationsAPIURL, "/")
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.enforceURLPolicy()
	return cfg, nil
}

// envKey maps PINMETO_LOG_LEVEL to log.level and PINMETO_ACCOUNT_ID to
// account_id. PINMETO_CONFIG selects the file and is not a config key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	switch key {
	case "config":
		return ""
	case "log_level":
		return "log.level"
	case "log_format":
		return "log.format"
	}
	return key
}

// findConfigFile returns the file to load. An explicitly named file must
// exist; the implicit ./pinmeto.yaml is optional.
func findConfigFile(flagPath string) (string, error) {
	explicit := flagPath
	if explicit == "" {
		explicit = os.Getenv(EnvConfigPath)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// enforceURLPolicy resets URL overrides outside development.
func (c *Config) enforceURLPolicy() {
	if c.Env == EnvDevelopment {
		return
	}
	if c.APIURL != DefaultAPIURL {
		c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring api_url override %q outside development mode", c.APIURL))
		c.APIURL = DefaultAPIURL
	}
	if c.LocationsAPIURL != DefaultLocationsAPIURL {
		c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring locations_api_url override %q outside development mode", c.LocationsAPIURL))
		c.LocationsAPIURL = DefaultLocationsAPIURL
	}
}

// Validate returns an error if required fields are missing or malformed.
func (c *Config) Validate() error {
	var missing []string
	if c.AccountID == "" {
		missing = append(missing, "PINMETO_ACCOUNT_ID")
	}
	if c.AppID == "" {
		missing = append(missing, "PINMETO_APP_ID")
	}
	if c.AppSecret == "" {
		missing = append(missing, "PINMETO_APP_SECRET")
	}
	if len(missing) > 0 {
		return errors.New(
			"missing required configuration: " + strings.Join(missing, ", ") + "\n\n" +
				"Set them one of these ways:\n" +
				"  1. Environment:  export PINMETO_ACCOUNT_ID=... PINMETO_APP_ID=... PINMETO_APP_SECRET=...\n" +
				"  2. pinmeto.yaml: account_id, app_id and app_secret keys\n\n" +
				"API credentials are created in the PinMeTo Places app under Settings > API.",
		)
	}
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RedactedSecret returns the app secret with most characters replaced by
// asterisks. Safe for logging and display.
func (c *Config) RedactedSecret() string {
	if len(c.AppSecret) <= 4 {
		return "****"
	}
	return c.AppSecret[:2] + "****" + c.AppSecret[len(c.AppSecret)-2:]
}

// Redacted returns a copy of c that is safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.AppSecret = c.RedactedSecret()
	return out
}

// Template returns the YAML for an initial pinmeto.yaml, suitable for
// `config init`.
func Template() ([]byte, error) {
	return yaml.Parser().Marshal(map[string]interface{}{
		"account_id":   "",
		"app_id":       "",
		"app_secret":   "",
		"env":          EnvProduction,
		"cache_ttl":    DefaultCacheTTL.String(),
		"rate":         DefaultRate,
		"max_pages":    0,
		"breaker":      true,
		"metrics_addr": "",
		"log": map[string]interface{}{
			"level":  "info",
			"format": "json",
		},
	})
}

// WriteTemplate writes Template to path, refusing to overwrite.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := Template()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
