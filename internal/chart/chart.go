// Package chart renders aggregated metric periods as terminal charts.
// Two renderers are available:
//
//   - Bar: horizontal bar chart, one bar per period. Suited to weekly,
//     monthly or coarser aggregations.
//   - Plot: multi-line ASCII chart with labeled axes. Suited to daily
//     aggregations spanning many periods.
//
// A period without the requested metric counts as zero.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars keeps only the last MaxBars periods. If 0, no limit is applied.
	MaxBars int
}

// Bar renders a horizontal bar chart of one metric across periods.
//
// Output example:
//
//	views  2024-01 – 2024-03
//	2024-01  1200  ████████████
//	2024-02  1800  ████████████████████
//	2024-03   900  ████████
func Bar(w io.Writer, metric string, periods []model.AggregatedPeriod, opts BarOptions) error {
	if len(periods) == 0 {
		return fmt.Errorf("chart bar: no periods to render")
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}
	if opts.MaxBars > 0 && len(periods) > opts.MaxBars {
		periods = periods[len(periods)-opts.MaxBars:]
	}
	if len(periods) > 60 {
		fmt.Fprintf(w, "⚠  %d periods, consider a coarser --aggregation\n\n", len(periods))
	}

	vals := values(metric, periods)
	minVal, maxVal := bounds(vals)
	if minVal > 0 {
		minVal = 0
	}

	labelWidth, valWidth := 0, 0
	for i, p := range periods {
		if l := len(p.Label); l > labelWidth {
			labelWidth = l
		}
		if l := len(formatFloat(vals[i])); l > valWidth {
			valWidth = l
		}
	}

	barAreaWidth := totalWidth - labelWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
	}
	hasNeg := minVal < 0
	var zeroPos int
	if hasNeg {
		zeroPos = int(math.Round((-minVal / valRange) * float64(barAreaWidth-1)))
	}

	fmt.Fprintf(w, "%s  %s – %s\n", metric, periods[0].Label, periods[len(periods)-1].Label)

	for i, p := range periods {
		v := vals[i]
		var bar string
		if hasNeg {
			bar = buildBiBar(v, valRange, barAreaWidth, zeroPos)
		} else {
			barLen := int(math.Round((v - minVal) / valRange * float64(barAreaWidth)))
			if barLen < 1 && v > 0 {
				barLen = 1
			}
			if barLen > barAreaWidth {
				barLen = barAreaWidth
			}
			bar = strings.Repeat("█", barLen)
		}
		fmt.Fprintf(w, "%-*s  %*s  %s\n", labelWidth, p.Label, valWidth, formatFloat(v), bar)
	}
	return nil
}

// buildBiBar renders a bar that may extend left (negative) or right (positive)
// from a zero baseline at zeroPos.
func buildBiBar(val, valRange float64, barAreaWidth, zeroPos int) string {
	buf := []rune(strings.Repeat(" ", barAreaWidth))
	if zeroPos >= 0 && zeroPos < barAreaWidth {
		buf[zeroPos] = '│'
	}
	if val >= 0 {
		end := zeroPos + int(math.Round(val/valRange*float64(barAreaWidth-1)))
		for i := zeroPos + 1; i <= end && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	} else {
		start := zeroPos - int(math.Round((-val)/valRange*float64(barAreaWidth-1)))
		if start < 0 {
			start = 0
		}
		for i := start; i < zeroPos && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	}
	return string(buf)
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls multi-line ASCII plot rendering.
type PlotOptions struct {
	// Width is the total character width including the Y-axis label.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Height is the number of data rows. If 0, defaults to 12.
	Height int
	// Title overrides the default title (the metric name).
	Title string
}

// Plot renders a multi-line ASCII chart of one metric across periods.
func Plot(w io.Writer, metric string, periods []model.AggregatedPeriod, opts PlotOptions) error {
	if len(periods) < 2 {
		return fmt.Errorf("chart plot: need at least 2 periods (got %d)", len(periods))
	}
	width := opts.Width
	if width <= 0 {
		width = termWidth()
	}
	height := opts.Height
	if height <= 0 {
		height = 12
	}
	title := opts.Title
	if title == "" {
		title = metric
	}

	vals := values(metric, periods)
	minVal, maxVal := bounds(vals)

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := 0
	for _, t := range ticks {
		if l := len(formatFloat(t)); l > yLabelWidth {
			yLabelWidth = l
		}
	}
	plotWidth := width - yLabelWidth - 2
	if plotWidth < 10 {
		plotWidth = 10
	}

	grid := buildGrid(sampleCols(vals, plotWidth), minVal, maxVal, height)

	fmt.Fprintf(w, "%s  (%s to %s)\n", title, periods[0].Label, periods[len(periods)-1].Label)
	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if math.Abs(rowForValue(t, minVal, maxVal, height)-float64(row)) < 0.5 {
				label = formatFloat(t)
				break
			}
		}
		axisCh := "┤"
		if label == "" {
			axisCh = " "
		}
		fmt.Fprintf(w, "%*s%s%s\n", yLabelWidth, label, axisCh, string(grid[row]))
	}
	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), xAxisLabels(periods, plotWidth))
	return nil
}

// ─── Grid building ────────────────────────────────────────────────────────────

// sampleCols reduces vals to exactly n columns by averaging buckets. With
// fewer values than columns, values are repeated.
func sampleCols(vals []float64, n int) []float64 {
	total := len(vals)
	cols := make([]float64, n)
	for col := 0; col < n; col++ {
		lo := col * total / n
		hi := (col+1)*total/n - 1
		if hi < lo {
			hi = lo
		}
		if hi >= total {
			hi = total - 1
		}
		sum := 0.0
		for i := lo; i <= hi; i++ {
			sum += vals[i]
		}
		cols[col] = sum / float64(hi-lo+1)
	}
	return cols
}

// rowForValue returns the float row index (0=top=max) for a given value.
func rowForValue(v, minVal, maxVal float64, height int) float64 {
	if maxVal == minVal {
		return float64(height) / 2
	}
	return (maxVal - v) / (maxVal - minVal) * float64(height-1)
}

// buildGrid renders columns into a height×width rune grid, joining
// neighbouring points with vertical strokes.
func buildGrid(cols []float64, minVal, maxVal float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", len(cols)))
	}

	rowOf := make([]int, len(cols))
	for col, v := range cols {
		r := int(math.Round(rowForValue(v, minVal, maxVal, height)))
		if r < 0 {
			r = 0
		}
		if r >= height {
			r = height - 1
		}
		rowOf[col] = r
	}

	for col, r := range rowOf {
		switch {
		case col == 0 || rowOf[col-1] == r:
			grid[r][col] = '─'
		case rowOf[col-1] > r:
			grid[r][col] = '╭'
		default:
			grid[r][col] = '╰'
		}
		if col > 0 && rowOf[col-1] != r {
			lo, hi := r, rowOf[col-1]
			if lo > hi {
				lo, hi = hi, lo
			}
			for fill := lo + 1; fill < hi; fill++ {
				grid[fill][col] = '│'
			}
		}
	}
	return grid
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// yTicks returns 3 or 4 evenly-spaced tick values for the Y axis.
func yTicks(minVal, maxVal float64, height int) []float64 {
	if maxVal == minVal {
		return []float64{minVal}
	}
	nTicks := 4
	if height <= 6 {
		nTicks = 3
	}
	ticks := make([]float64, nTicks)
	for i := 0; i < nTicks; i++ {
		ticks[i] = minVal + float64(i)*(maxVal-minVal)/float64(nTicks-1)
	}
	return ticks
}

// xAxisLabels places the first, middle and last period labels.
func xAxisLabels(periods []model.AggregatedPeriod, plotWidth int) string {
	buf := []rune(strings.Repeat(" ", plotWidth))
	writeAt := func(pos int, s string) {
		for i, ch := range []rune(s) {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}
	start := periods[0].Label
	mid := periods[len(periods)/2].Label
	end := periods[len(periods)-1].Label
	writeAt(0, start)
	writeAt(plotWidth/2-len(mid)/2, mid)
	writeAt(plotWidth-len(end), end)
	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

func values(metric string, periods []model.AggregatedPeriod) []float64 {
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = p.Metrics[metric]
	}
	return out
}

func bounds(vals []float64) (float64, float64) {
	minVal, maxVal := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// formatFloat formats a value for labels: compact K/M notation for large
// magnitudes, no trailing zeros.
func formatFloat(v float64) string {
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
