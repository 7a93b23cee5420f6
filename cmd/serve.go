package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/server"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/tools"
)

var serveMetricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Serve the PinMeTo tools over the MCP stdio transport. Logs go to stderr;
stdout carries only protocol messages.

The server exits cleanly when its host closes stdin. With --metrics-addr
(or PINMETO_METRICS_ADDR) it also serves /metrics and /healthz over HTTP.`,
	Example: `  pinmeto-mcp serve
  pinmeto-mcp serve --metrics-addr 127.0.0.1:9464
  PINMETO_LOG_LEVEL=debug pinmeto-mcp serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		cfg := svc.Session().Config
		addr := cfg.MetricsAddr
		if cmd.Flags().Changed("metrics-addr") {
			addr = serveMetricsAddr
		}

		logging.Info().
			Str("version", Version).
			Str("account", cfg.AccountID).
			Str("api_url", cfg.APIURL).
			Str("locations_api_url", cfg.LocationsAPIURL).
			Dur("cache_ttl", cfg.CacheTTL).
			Msg("starting MCP server")

		return server.Run(cmd.Context(), svc.Session(), tools.NewServer(svc, Version), server.Options{
			MetricsAddr: addr,
			Stdin:       os.Stdin,
			Stdout:      os.Stdout,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "",
		"listen address for /metrics and /healthz (empty disables)")
}
