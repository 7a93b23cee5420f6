package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/tools"
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Look up PinMeTo locations",
}

// ─── location get ─────────────────────────────────────────────────────────────

var locationGetCmd = &cobra.Command{
	Use:   "get <STORE_ID>",
	Short: "Show one location by store id",
	Example: `  pinmeto-mcp location get 1234
  pinmeto-mcp location get 1234 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		res, err := svc.GetLocation(cmd.Context(), tools.LocationInput{StoreID: args[0]})
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), res)
	},
}

// ─── location list ────────────────────────────────────────────────────────────

var locationListFlags tools.LocationsInput

var locationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the account's locations",
	Long: `List every location of the account, following pagination. Filters are
applied locally after the full list has been fetched.`,
	Example: `  pinmeto-mcp location list
  pinmeto-mcp location list --search cafe --active
  pinmeto-mcp location list --city Stockholm --limit 20 --format markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		res, err := svc.ListLocations(cmd.Context(), locationListFlags)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(locationCmd)
	locationCmd.AddCommand(locationGetCmd)
	locationCmd.AddCommand(locationListCmd)

	f := locationListCmd.Flags()
	f.StringVar(&locationListFlags.Search, "search", "", "text matched against store id, name, descriptor, street and city")
	f.StringVar(&locationListFlags.City, "city", "", "exact city name (case-insensitive)")
	f.BoolVar(&locationListFlags.ActiveOnly, "active", false, "only active locations")
	f.IntVar(&locationListFlags.Limit, "limit", 0, "maximum locations to print (0 = all)")
}
