package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/config"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

var envKeys = []string{
	"PINMETO_ACCOUNT_ID", "PINMETO_APP_ID", "PINMETO_APP_SECRET",
	"PINMETO_API_URL", "PINMETO_LOCATIONS_API_URL", "PINMETO_ENV",
	"PINMETO_CACHE_TTL", "PINMETO_RATE", "PINMETO_MAX_PAGES", "PINMETO_BREAKER",
	"PINMETO_METRICS_ADDR", "PINMETO_LOG_LEVEL", "PINMETO_LOG_FORMAT", "PINMETO_CONFIG",
}

// clearEnv unsets every PINMETO_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

// inTempDir changes the working directory to a fresh temp dir so no
// pinmeto.yaml is picked up implicitly.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	inTempDir(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != config.DefaultAPIURL {
		t.Errorf("APIURL: expected %q, got %q", config.DefaultAPIURL, cfg.APIURL)
	}
	if cfg.LocationsAPIURL != config.DefaultLocationsAPIURL {
		t.Errorf("LocationsAPIURL: expected %q, got %q", config.DefaultLocationsAPIURL, cfg.LocationsAPIURL)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL: expected 5m, got %s", cfg.CacheTTL)
	}
	if cfg.Rate != config.DefaultRate {
		t.Errorf("Rate: expected %g, got %g", config.DefaultRate, cfg.Rate)
	}
	if !cfg.Breaker {
		t.Error("Breaker: expected enabled by default")
	}
	if cfg.Env != config.EnvProduction {
		t.Errorf("Env: expected production, got %q", cfg.Env)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath: expected empty, got %q", cfg.ConfigPath)
	}
}

// ─── Layering ────────────────────────────────────────────────────────────────

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	inTempDir(t)
	t.Setenv("PINMETO_ACCOUNT_ID", "acc-1")
	t.Setenv("PINMETO_APP_ID", "app")
	t.Setenv("PINMETO_APP_SECRET", "supersecret")
	t.Setenv("PINMETO_CACHE_TTL", "90s")
	t.Setenv("PINMETO_RATE", "2.5")
	t.Setenv("PINMETO_MAX_PAGES", "3")
	t.Setenv("PINMETO_BREAKER", "false")
	t.Setenv("PINMETO_LOG_LEVEL", "DEBUG")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccountID != "acc-1" || cfg.AppID != "app" || cfg.AppSecret != "supersecret" {
		t.Errorf("credentials: got %q %q %q", cfg.AccountID, cfg.AppID, cfg.AppSecret)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL: expected 90s, got %s", cfg.CacheTTL)
	}
	if cfg.Rate != 2.5 || cfg.MaxPages != 3 || cfg.Breaker {
		t.Errorf("tunables: rate=%g maxPages=%d breaker=%v", cfg.Rate, cfg.MaxPages, cfg.Breaker)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: expected debug, got %q", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := inTempDir(t)
	writeFile(t, filepath.Join(dir, config.DefaultConfigFile),
		"account_id: from-file\napp_id: file-app\napp_secret: file-secret\ncache_ttl: 2m\nlog:\n  format: console\n")
	t.Setenv("PINMETO_ACCOUNT_ID", "from-env")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccountID != "from-env" {
		t.Errorf("AccountID: expected env to win, got %q", cfg.AccountID)
	}
	if cfg.AppID != "file-app" {
		t.Errorf("AppID: expected file value, got %q", cfg.AppID)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL: expected 2m, got %s", cfg.CacheTTL)
	}
	if cfg.Log.Format != "console" || cfg.Log.Level != "info" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	if !strings.HasSuffix(cfg.ConfigPath, config.DefaultConfigFile) {
		t.Errorf("ConfigPath: got %q", cfg.ConfigPath)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	clearEnv(t)
	inTempDir(t)
	if _, err := config.Load("does-not-exist.yaml"); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
	t.Setenv("PINMETO_CONFIG", "also-missing.yaml")
	if _, err := config.Load(""); err == nil {
		t.Error("expected an error for a missing PINMETO_CONFIG file")
	}
}

// ─── URL policy ──────────────────────────────────────────────────────────────

func TestURLOverrideIgnoredOutsideDevelopment(t *testing.T) {
	clearEnv(t)
	inTempDir(t)
	t.Setenv("PINMETO_API_URL", "http://localhost:9999")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != config.DefaultAPIURL {
		t.Errorf("APIURL: expected override to be ignored, got %q", cfg.APIURL)
	}
	if len(cfg.Warnings) != 1 {
		t.Errorf("Warnings: expected 1, got %v", cfg.Warnings)
	}
}

func TestURLOverrideHonouredInDevelopment(t *testing.T) {
	clearEnv(t)
	inTempDir(t)
	t.Setenv("PINMETO_ENV", "development")
	t.Setenv("PINMETO_API_URL", "http://localhost:9999/")
	t.Setenv("PINMETO_LOCATIONS_API_URL", "http://localhost:9998")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Errorf("APIURL: got %q", cfg.APIURL)
	}
	if cfg.LocationsAPIURL != "http://localhost:9998" {
		t.Errorf("LocationsAPIURL: got %q", cfg.LocationsAPIURL)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("Warnings: expected none, got %v", cfg.Warnings)
	}
}

// ─── Validate ────────────────────────────────────────────────────────────────

func TestValidateMissingCredentials(t *testing.T) {
	clearEnv(t)
	inTempDir(t)
	t.Setenv("PINMETO_ACCOUNT_ID", "acc")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "PINMETO_APP_ID") || !strings.Contains(msg, "PINMETO_APP_SECRET") {
		t.Errorf("message: expected both missing variables, got %q", msg)
	}
	if strings.Contains(msg, "PINMETO_ACCOUNT_ID,") {
		t.Errorf("message: account id is set and must not be listed, got %q", msg)
	}
}

func TestValidateRejectsBadTunables(t *testing.T) {
	clearEnv(t)
	inTempDir(t)
	t.Setenv("PINMETO_ACCOUNT_ID", "acc")
	t.Setenv("PINMETO_APP_ID", "app")
	t.Setenv("PINMETO_APP_SECRET", "secret")
	t.Setenv("PINMETO_LOG_FORMAT", "xml")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "Format") {
		t.Errorf("expected a log format error, got %v", err)
	}
}

// ─── Redaction & template ────────────────────────────────────────────────────

func TestRedacted(t *testing.T) {
	cfg := &config.Config{AppSecret: "abcdef123456"}
	if got := cfg.RedactedSecret(); got != "ab****56" {
		t.Errorf("RedactedSecret: expected %q, got %q", "ab****56", got)
	}
	r := cfg.Redacted()
	if r.AppSecret == cfg.AppSecret {
		t.Error("Redacted: secret leaked")
	}
	if cfg.AppSecret != "abcdef123456" {
		t.Error("Redacted: original modified")
	}
	if (&config.Config{AppSecret: "abc"}).RedactedSecret() != "****" {
		t.Error("short secrets must be fully masked")
	}
}

func TestWriteTemplateRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := inTempDir(t)
	path := filepath.Join(dir, config.DefaultConfigFile)
	if err := config.WriteTemplate(path); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if err := config.WriteTemplate(path); err == nil {
		t.Error("WriteTemplate: expected refusal to overwrite")
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(template): %v", err)
	}
	if cfg.CacheTTL != config.DefaultCacheTTL || cfg.Rate != config.DefaultRate {
		t.Errorf("template did not round-trip defaults: ttl=%s rate=%g", cfg.CacheTTL, cfg.Rate)
	}
}
