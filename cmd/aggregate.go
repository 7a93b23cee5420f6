package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/aggregate"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pipeline"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/render"
)

// formatJSONL is the pipeline format understood by aggregate and chart.
const formatJSONL = "jsonl"

var (
	aggregatePeriod string
	aggregateFrom   string
	aggregateTo     string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate JSONL observations from stdin into calendar periods",
	Long: `Reads one observation per line and sums each metric per period. No API
credentials are needed.

Input lines look like:
  {"metric":"VIEWS","date":"2024-01-15","value":42}
("key" is accepted for "metric" and "label" for "date".)

Output is JSONL when stdout is a pipe and a table in a terminal; --format
overrides that.`,
	Example: `  cat views.jsonl | pinmeto-mcp aggregate --aggregation weekly
  cat views.jsonl | pinmeto-mcp aggregate --aggregation quarterly --format markdown
  cat views.jsonl | pinmeto-mcp aggregate --aggregation total --from 2024-01-01 --to 2024-03-31`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		periods, skipped, err := readAndAggregate(cmd.InOrStdin(), aggregatePeriod, aggregateFrom, aggregateTo)
		if err != nil {
			return err
		}
		if skipped > 0 && !globalFlags.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %d observations without a calendar date were left out\n", skipped)
		}
		return writePeriods(cmd, periods)
	},
}

// readAndAggregate reads JSONL observations from r and buckets them.
func readAndAggregate(r io.Reader, period, from, to string) ([]model.AggregatedPeriod, int, error) {
	p, err := aggregate.ParsePeriod(period)
	if err != nil {
		return nil, 0, err
	}
	obs, err := pipeline.ReadObservations(r)
	if err != nil {
		return nil, 0, err
	}
	return aggregate.Aggregate(obs, p, model.DateRange{From: from, To: to})
}

// writePeriods writes periods as JSONL (pipeline) or a rendered table (terminal).
func writePeriods(cmd *cobra.Command, periods []model.AggregatedPeriod) error {
	format := resolveFormat("")
	if globalFlags.Format == "" && !pipeline.IsTTY() {
		format = formatJSONL
	}

	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeFn()

	if format == formatJSONL {
		return pipeline.WriteJSONL(w, periods)
	}
	result := &model.Result{
		Kind:        model.KindPeriods,
		GeneratedAt: time.Now(),
		Command:     "aggregate",
		Data:        periods,
		Stats:       model.ResultStats{Items: len(periods), AllPagesFetched: true},
	}
	return render.Render(w, result, format)
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	aggregateCmd.Flags().StringVar(&aggregatePeriod, "aggregation", "monthly",
		"daily|weekly|monthly|quarterly|half-yearly|yearly|total")
	aggregateCmd.Flags().StringVar(&aggregateFrom, "from", "", "range start used to label the total bucket")
	aggregateCmd.Flags().StringVar(&aggregateTo, "to", "", "range end used to label the total bucket")
}
