package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/chart"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/tools"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Performance insights for Google, Facebook and Apple listings",
	Long: `Fetch listing insights (views, searches, actions) and aggregate them.

Aggregation:  daily, weekly (Monday start), monthly, quarterly, half-yearly,
              yearly, total (default)
Compare:      none (default), prior_period, prior_year`,
}

var (
	insightsFlags tools.InsightsInput
	insightsAll   bool
	insightsChart string
)

// ─── insights get ─────────────────────────────────────────────────────────────

var insightsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch and aggregate insights for one network or all of them",
	Example: `  pinmeto-mcp insights get --network google --from 2024-01-01 --to 2024-03-31
  pinmeto-mcp insights get --network google --store 1234 --from 2024-01-01 --to 2024-12-31 --aggregation monthly --chart VIEWS
  pinmeto-mcp insights get --all --from 2024-01-01 --to 2024-03-31 --compare prior_year`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !insightsAll && insightsFlags.Network == "" {
			return fmt.Errorf("--network is required unless --all is set")
		}
		svc, err := buildService()
		if err != nil {
			return err
		}

		var res *model.Result
		if insightsAll {
			res, err = svc.AllNetworksInsights(cmd.Context(), tools.AllNetworksInput{
				StoreID:     insightsFlags.StoreID,
				From:        insightsFlags.From,
				To:          insightsFlags.To,
				Aggregation: insightsFlags.Aggregation,
				CompareWith: insightsFlags.CompareWith,
			})
		} else {
			res, err = svc.Insights(cmd.Context(), insightsFlags)
		}
		if err != nil {
			return err
		}
		if err := emit(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if insightsChart == "" {
			return nil
		}
		return chartReports(cmd.OutOrStdout(), res, insightsChart)
	},
}

// chartReports draws a bar chart of metric for every report in res.
func chartReports(w io.Writer, res *model.Result, metric string) error {
	var reports []model.InsightsReport
	switch d := res.Data.(type) {
	case *model.InsightsReport:
		reports = []model.InsightsReport{*d}
	case []model.InsightsReport:
		reports = d
	}
	for _, r := range reports {
		if len(r.Periods) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", r.Network)
		if err := chart.Bar(w, metric, r.Periods, chart.BarOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	insightsCmd.AddCommand(insightsGetCmd)

	f := insightsGetCmd.Flags()
	f.StringVar(&insightsFlags.Network, "network", "", "google|facebook|apple")
	f.BoolVar(&insightsAll, "all", false, "query every network concurrently")
	f.StringVar(&insightsFlags.StoreID, "store", "", "store id (default: whole account)")
	f.StringVar(&insightsFlags.From, "from", "", "start date YYYY-MM-DD (required)")
	f.StringVar(&insightsFlags.To, "to", "", "end date YYYY-MM-DD, inclusive (required)")
	f.StringVar(&insightsFlags.Aggregation, "aggregation", "total", "period granularity")
	f.StringVar(&insightsFlags.CompareWith, "compare", "none", "none|prior_period|prior_year")
	f.StringVar(&insightsChart, "chart", "", "draw a bar chart of this metric (e.g. VIEWS) after the table")
	_ = insightsGetCmd.MarkFlagRequired("from")
	_ = insightsGetCmd.MarkFlagRequired("to")
}
