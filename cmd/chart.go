package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/chart"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render one metric as an ASCII chart (reads JSONL from stdin)",
	Long: `Chart commands read JSONL observations from stdin, aggregate them by
--aggregation and render one metric to the terminal.

Pipeline examples:
  cat views.jsonl | pinmeto-mcp chart bar --metric VIEWS --aggregation monthly
  cat views.jsonl | pinmeto-mcp chart plot --metric VIEWS --aggregation daily`,
}

var (
	chartMetric      string
	chartAggregation string
)

// ─── chart bar ───────────────────────────────────────────────────────────────

var (
	chartBarWidth   int
	chartBarMaxBars int
)

var chartBarCmd = &cobra.Command{
	Use:   "bar",
	Short: "Horizontal bar chart, one bar per period",
	Long: `Renders a horizontal bar chart with one labeled bar per period.

Best suited for coarse periods (monthly, quarterly). Negative values extend
left from a zero baseline. Periods without the metric are drawn as zero.`,
	Example: `  cat views.jsonl | pinmeto-mcp chart bar --metric VIEWS
  cat views.jsonl | pinmeto-mcp chart bar --metric CALLS --aggregation weekly --max-bars 12`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		periods, _, err := readAndAggregate(cmd.InOrStdin(), chartAggregation, "", "")
		if err != nil {
			return err
		}
		return chart.Bar(cmd.OutOrStdout(), chartMetric, periods, chart.BarOptions{
			Width:   chartBarWidth,
			MaxBars: chartBarMaxBars,
		})
	},
}

// ─── chart plot ──────────────────────────────────────────────────────────────

var (
	chartPlotWidth  int
	chartPlotHeight int
	chartPlotTitle  string
)

var chartPlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Multi-line ASCII chart with labeled axes",
	Long: `Renders a multi-line chart with Y-axis tick labels and X-axis period labels.

Width auto-detects from $COLUMNS (falls back to 80). Override with --width
and --height.`,
	Example: `  cat views.jsonl | pinmeto-mcp chart plot --metric VIEWS --aggregation daily
  cat views.jsonl | pinmeto-mcp chart plot --metric VIEWS --height 8 --title "Daily views"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		periods, _, err := readAndAggregate(cmd.InOrStdin(), chartAggregation, "", "")
		if err != nil {
			return err
		}
		return chart.Plot(cmd.OutOrStdout(), chartMetric, periods, chart.PlotOptions{
			Width:  chartPlotWidth,
			Height: chartPlotHeight,
			Title:  chartPlotTitle,
		})
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartBarCmd)
	chartCmd.AddCommand(chartPlotCmd)

	pf := chartCmd.PersistentFlags()
	pf.StringVar(&chartMetric, "metric", "", "metric to chart, e.g. VIEWS (required)")
	pf.StringVar(&chartAggregation, "aggregation", "monthly", "period granularity")
	_ = chartCmd.MarkPersistentFlagRequired("metric")

	chartBarCmd.Flags().IntVar(&chartBarWidth, "width", 0,
		"total chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartBarCmd.Flags().IntVar(&chartBarMaxBars, "max-bars", 0,
		"maximum bars to render, keeping the last N periods (0 = no limit)")

	chartPlotCmd.Flags().IntVar(&chartPlotWidth, "width", 0,
		"chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartPlotCmd.Flags().IntVar(&chartPlotHeight, "height", 12,
		"chart height in rows")
	chartPlotCmd.Flags().StringVar(&chartPlotTitle, "title", "",
		"chart title (default: metric name)")
}
