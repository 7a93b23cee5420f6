// Package cmd implements the pinmeto-mcp command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/app"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/config"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/tools"
)

// globalFlags holds the parsed values of all persistent (global) flags.
var globalFlags struct {
	Config   string
	Format   string
	Out      string
	LogLevel string
	Quiet    bool
	Verbose  bool
}

// rootCmd is the base command. Running `pinmeto-mcp` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "pinmeto-mcp",
	Short: "pinmeto-mcp: PinMeTo locations, insights and reviews for agents and terminals",
	Long: `pinmeto-mcp exposes a PinMeTo account's locations, performance insights,
ratings and search keywords as MCP tools, and as CLI commands for the same
operations.

Credentials come from PINMETO_ACCOUNT_ID, PINMETO_APP_ID and
PINMETO_APP_SECRET, or from pinmeto.yaml.

Quick start:
  pinmeto-mcp config init                 # create pinmeto.yaml
  pinmeto-mcp location list --search cafe # list matching locations
  pinmeto-mcp serve                       # run the MCP server on stdio`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var pe *pinmeto.Error
		if errors.As(err, &pe) {
			fmt.Fprintln(os.Stderr, pe.Guidance())
		}
		stop()
		os.Exit(1)
	}
}

// loadConfig resolves config, applies flag overrides and configures logging.
// It does not validate credentials.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.Config)
	if err != nil {
		return nil, err
	}
	if globalFlags.LogLevel != "" {
		cfg.Log.Level = globalFlags.LogLevel
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	for _, w := range cfg.Warnings {
		logging.Warn().Msg(w)
	}
	return cfg, nil
}

// buildService resolves and validates config and constructs the Service.
// Called at the start of each API command's RunE.
func buildService() (*tools.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return tools.NewService(app.NewSession(cfg)), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Config, "config", "",
		"path to a YAML config file (default: $PINMETO_CONFIG or ./pinmeto.yaml)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|markdown (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.LogLevel, "log-level", "",
		"log level: trace|debug|info|warn|error|disabled (overrides PINMETO_LOG_LEVEL)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress warnings and the stats footer")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show cache/timing stats after output")
}
