package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/tools"
)

// ─── ratings get ──────────────────────────────────────────────────────────────

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Rating summaries",
}

var ratingsFlags tools.RatingsInput

var ratingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Summarise ratings: average, median, distribution and reply rate",
	Example: `  pinmeto-mcp ratings get --network google --from 2024-01-01 --to 2024-03-31
  pinmeto-mcp ratings get --network facebook --store 1234 --from 2024-01-01 --to 2024-12-31 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		res, err := svc.Ratings(cmd.Context(), ratingsFlags)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), res)
	},
}

// ─── reviews list ─────────────────────────────────────────────────────────────

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Individual customer reviews",
}

var reviewsFlags tools.ReviewsInput

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews, optionally filtered by star rating",
	Example: `  pinmeto-mcp reviews list --network google --from 2024-01-01 --to 2024-01-31
  pinmeto-mcp reviews list --network google --from 2024-01-01 --to 2024-01-31 --max-rating 2 --limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		res, err := svc.Reviews(cmd.Context(), reviewsFlags)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(ratingsCmd)
	ratingsCmd.AddCommand(ratingsGetCmd)
	rootCmd.AddCommand(reviewsCmd)
	reviewsCmd.AddCommand(reviewsListCmd)

	rf := ratingsGetCmd.Flags()
	rf.StringVar(&ratingsFlags.Network, "network", "google", "google|facebook|apple")
	rf.StringVar(&ratingsFlags.StoreID, "store", "", "store id (default: whole account)")
	rf.StringVar(&ratingsFlags.From, "from", "", "start date YYYY-MM-DD (required)")
	rf.StringVar(&ratingsFlags.To, "to", "", "end date YYYY-MM-DD, inclusive (required)")
	_ = ratingsGetCmd.MarkFlagRequired("from")
	_ = ratingsGetCmd.MarkFlagRequired("to")

	vf := reviewsListCmd.Flags()
	vf.StringVar(&reviewsFlags.Network, "network", "google", "google|facebook|apple")
	vf.StringVar(&reviewsFlags.StoreID, "store", "", "store id (default: whole account)")
	vf.StringVar(&reviewsFlags.From, "from", "", "start date YYYY-MM-DD (required)")
	vf.StringVar(&reviewsFlags.To, "to", "", "end date YYYY-MM-DD, inclusive (required)")
	vf.IntVar(&reviewsFlags.MinRating, "min-rating", 0, "lowest star rating to include (0 = no bound)")
	vf.IntVar(&reviewsFlags.MaxRating, "max-rating", 0, "highest star rating to include (0 = no bound)")
	vf.IntVar(&reviewsFlags.Limit, "limit", 0, "maximum reviews to print (0 = all)")
	_ = reviewsListCmd.MarkFlagRequired("from")
	_ = reviewsListCmd.MarkFlagRequired("to")
}
