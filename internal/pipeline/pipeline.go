// Package pipeline reads and writes metric streams via stdin/stdout in
// JSONL format, the canonical pipe format of the aggregate command.
//
// Input, one observation per line:
//
//	{"metric":"views","date":"2024-01-01","value":12}
//
// Output, one metric per aggregated period:
//
//	{"period":"2024-01","metric":"views","value":372}
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/aggregate"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/util"
)

type inRow struct {
	Metric string   `json:"metric"`
	Key    string   `json:"key"`
	Date   string   `json:"date"`
	Label  string   `json:"label"`
	Value  *float64 `json:"value"`
}

// ReadObservations reads JSONL observations from r. "key" is accepted for
// "metric" and "label" for "date", so insights rows can be piped in as-is.
// Lines whose label is not a date are kept; the aggregator skips and counts
// them. A missing or null value is an error.
func ReadObservations(r io.Reader) ([]model.Observation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var obs []model.Observation
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec inRow
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		metric := firstNonEmpty(rec.Metric, rec.Key)
		if metric == "" {
			return nil, fmt.Errorf("line %d: missing metric", lineNum)
		}
		if rec.Value == nil {
			return nil, fmt.Errorf("line %d: missing value", lineNum)
		}
		o := model.Observation{
			Metric: metric,
			Label:  firstNonEmpty(rec.Date, rec.Label),
			Value:  *rec.Value,
		}
		if d, err := util.ParseDate(o.Label); err == nil {
			o.Date = d
		}
		obs = append(obs, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations read from input (is stdin empty?)")
	}
	return obs, nil
}

type outRow struct {
	Period string  `json:"period"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// WriteJSONL writes one line per period and metric, metrics in sorted order.
func WriteJSONL(w io.Writer, periods []model.AggregatedPeriod) error {
	enc := json.NewEncoder(w)
	keys := aggregate.MetricKeys(periods)
	for _, p := range periods {
		for _, k := range keys {
			v, ok := p.Metrics[k]
			if !ok {
				continue
			}
			if err := enc.Encode(outRow{Period: p.Label, Metric: k, Value: v}); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
