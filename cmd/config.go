package cmd

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/config"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pinmeto-mcp configuration",
	Long: `Read and write pinmeto-mcp configuration.

Resolution order (later wins): built-in defaults, pinmeto.yaml (or --config,
or $PINMETO_CONFIG), PINMETO_* environment variables.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template pinmeto.yaml in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if globalFlags.Config != "" {
			path = globalFlags.Config
		}
		if err := config.WriteTemplate(path); err != nil {
			return fmt.Errorf("%w (delete it first to re-initialise)", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Set account_id, app_id and app_secret to get started.")
		fmt.Fprintln(out, "  API credentials are created in PinMeTo Places under Settings > API.")
		return nil
	},
}

var configShowSecrets bool

// configView is the printable form of a resolved Config.
type configView struct {
	AccountID       string   `json:"account_id"`
	AppID           string   `json:"app_id"`
	AppSecret       string   `json:"app_secret"`
	Env             string   `json:"env"`
	APIURL          string   `json:"api_url"`
	LocationsAPIURL string   `json:"locations_api_url"`
	CacheTTL        string   `json:"cache_ttl"`
	Rate            float64  `json:"rate"`
	MaxPages        int      `json:"max_pages"`
	Breaker         bool     `json:"breaker"`
	MetricsAddr     string   `json:"metrics_addr"`
	LogLevel        string   `json:"log_level"`
	LogFormat       string   `json:"log_format"`
	ConfigFile      string   `json:"config_file"`
	Warnings        []string `json:"warnings,omitempty"`
}

func viewOf(cfg *config.Config, showSecrets bool) configView {
	secret := cfg.RedactedSecret()
	if showSecrets {
		secret = cfg.AppSecret
	}
	if cfg.AppSecret == "" {
		secret = "(not set)"
	}
	src := "(not found)"
	if cfg.ConfigPath != "" {
		src = cfg.ConfigPath
	}
	return configView{
		AccountID:       orNotSet(cfg.AccountID),
		AppID:           orNotSet(cfg.AppID),
		AppSecret:       secret,
		Env:             cfg.Env,
		APIURL:          cfg.APIURL,
		LocationsAPIURL: cfg.LocationsAPIURL,
		CacheTTL:        cfg.CacheTTL.String(),
		Rate:            cfg.Rate,
		MaxPages:        cfg.MaxPages,
		Breaker:         cfg.Breaker,
		MetricsAddr:     cfg.MetricsAddr,
		LogLevel:        cfg.Log.Level,
		LogFormat:       cfg.Log.Format,
		ConfigFile:      src,
		Warnings:        cfg.Warnings,
	}
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v := viewOf(cfg, configShowSecrets)

		if resolveFormat("") == render.FormatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}

		maxPages := strconv.Itoa(v.MaxPages)
		if v.MaxPages == 0 {
			maxPages = "unlimited"
		}
		rows := [][]string{
			{"account_id", v.AccountID},
			{"app_id", v.AppID},
			{"app_secret", v.AppSecret},
			{"env", v.Env},
			{"api_url", v.APIURL},
			{"locations_api_url", v.LocationsAPIURL},
			{"cache_ttl", v.CacheTTL},
			{"rate", fmt.Sprintf("%.1f req/s", v.Rate)},
			{"max_pages", maxPages},
			{"breaker", strconv.FormatBool(v.Breaker)},
			{"metrics_addr", orNotSet(v.MetricsAddr)},
			{"log", v.LogLevel + " / " + v.LogFormat},
			{"config_file", v.ConfigFile},
		}
		printSimpleTable(cmd.OutOrStdout(), []string{"KEY", "VALUE"}, func(add func(...string)) {
			for _, r := range rows {
				add(r...)
			}
		})
		for _, w := range v.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %s\n", w)
		}
		return nil
	},
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "show the app secret in plain text")
}
