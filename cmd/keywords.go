package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/tools"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Google search keywords",
}

var keywordsFlags tools.KeywordsInput

var keywordsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Top Google search keywords for a month range, by impressions",
	Example: `  pinmeto-mcp keywords get --from 2024-01 --to 2024-03
  pinmeto-mcp keywords get --store 1234 --from 2024-01 --to 2024-06 --limit 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		res, err := svc.Keywords(cmd.Context(), keywordsFlags)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(keywordsCmd)
	keywordsCmd.AddCommand(keywordsGetCmd)

	f := keywordsGetCmd.Flags()
	f.StringVar(&keywordsFlags.StoreID, "store", "", "store id (default: whole account)")
	f.StringVar(&keywordsFlags.From, "from", "", "first month YYYY-MM (required)")
	f.StringVar(&keywordsFlags.To, "to", "", "last month YYYY-MM (required)")
	f.IntVar(&keywordsFlags.Limit, "limit", 0, fmt.Sprintf("keywords to print (default %d)", tools.DefaultKeywordLimit))
	_ = keywordsGetCmd.MarkFlagRequired("from")
	_ = keywordsGetCmd.MarkFlagRequired("to")
}
