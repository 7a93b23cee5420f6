package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/tools"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the in-memory locations cache",
	Long: `The locations list is cached in memory for PINMETO_CACHE_TTL (default 5m).
The cache lives only as long as the process, so from the CLI it is mostly
useful with --refresh to check that a full fetch succeeds and how long it
takes.`,
}

var cacheStatusRefresh bool

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cache state, optionally after a full refresh",
	Example: `  pinmeto-mcp cache status --refresh
  pinmeto-mcp cache status --refresh --verbose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		res, err := svc.CacheStatus(cmd.Context(), tools.CacheInput{Refresh: cacheStatusRefresh})
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheStatusCmd.Flags().BoolVar(&cacheStatusRefresh, "refresh", false, "fetch every location page before reporting")
}
