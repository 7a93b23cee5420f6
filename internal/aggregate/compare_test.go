package aggregate_test

import (
	"math"
	"testing"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/aggregate"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

func bucketOf(label string, metrics map[string]float64) model.AggregatedPeriod {
	return model.AggregatedPeriod{Label: label, Metrics: metrics}
}

// ─── DeltaPercent ────────────────────────────────────────────────────────────

func TestDeltaPercent(t *testing.T) {
	tests := []struct {
		current, prior float64
		want           string
	}{
		{100, 0, "NEW"},
		{0, 0, "0%"},
		{50, 50, "0%"},
		{112.5, 100, "+12.5%"},
		{80, 100, "-20.0%"},
		{0, 40, "-100.0%"},
		{-5, 0, "n/a"},
		{-5, -10, "+50.0%"},
	}
	for _, tt := range tests {
		if got := aggregate.DeltaPercent(tt.current, tt.prior); got != tt.want {
			t.Errorf("DeltaPercent(%g, %g): expected %q, got %q", tt.current, tt.prior, tt.want, got)
		}
	}
}

// ─── Compare ─────────────────────────────────────────────────────────────────

func TestCompareTotalsPositionally(t *testing.T) {
	cur := []model.AggregatedPeriod{bucketOf("2024-03-01..2024-03-31", map[string]float64{"views": 100, "calls": 0})}
	pri := []model.AggregatedPeriod{bucketOf("2023-03-01..2023-03-31", map[string]float64{"views": 0, "calls": 0})}

	out := aggregate.Compare(cur, pri)
	if len(out) != 2 {
		t.Fatalf("results: expected 2, got %d", len(out))
	}
	byMetric := map[string]model.ComparisonResult{}
	for _, r := range out {
		byMetric[r.Metric] = r
	}
	if r := byMetric["views"]; r.DeltaPercent != "NEW" || r.Delta != 100 || r.Ratio != nil {
		t.Errorf("views: got %+v", r)
	}
	if r := byMetric["calls"]; r.DeltaPercent != "0%" || r.Ratio != nil {
		t.Errorf("calls: got %+v", r)
	}
	for _, r := range out {
		if r.Ratio != nil && (math.IsNaN(*r.Ratio) || math.IsInf(*r.Ratio, 0)) {
			t.Errorf("%s: ratio must be finite", r.Metric)
		}
	}
}

func TestCompareMissingMetricCountsAsZero(t *testing.T) {
	cur := []model.AggregatedPeriod{bucketOf("total", map[string]float64{"views": 10})}
	pri := []model.AggregatedPeriod{bucketOf("total", map[string]float64{"calls": 4})}

	out := aggregate.Compare(cur, pri)
	if len(out) != 2 {
		t.Fatalf("results: expected 2, got %d", len(out))
	}
	// Sorted metric keys: calls, views.
	if out[0].Metric != "calls" || out[0].Current != 0 || out[0].Prior != 4 || out[0].DeltaPercent != "-100.0%" {
		t.Errorf("calls: got %+v", out[0])
	}
	if out[1].Metric != "views" || out[1].DeltaPercent != "NEW" {
		t.Errorf("views: got %+v", out[1])
	}
}

func TestCompareByLabel(t *testing.T) {
	cur := []model.AggregatedPeriod{
		bucketOf("2024-01", map[string]float64{"v": 10}),
		bucketOf("2024-02", map[string]float64{"v": 30}),
	}
	pri := []model.AggregatedPeriod{
		bucketOf("2024-02", map[string]float64{"v": 20}),
		bucketOf("2024-03", map[string]float64{"v": 5}),
	}
	out := aggregate.Compare(cur, pri)
	if len(out) != 3 {
		t.Fatalf("results: expected 3, got %d: %+v", len(out), out)
	}
	if out[0].PeriodLabel != "2024-01" || out[0].Prior != 0 || out[0].DeltaPercent != "NEW" {
		t.Errorf("2024-01: got %+v", out[0])
	}
	if out[1].PeriodLabel != "2024-02" || out[1].DeltaPercent != "+50.0%" || out[1].Ratio == nil || *out[1].Ratio != 50 {
		t.Errorf("2024-02: got %+v", out[1])
	}
	if out[2].PeriodLabel != "2024-03" || out[2].Current != 0 || out[2].Prior != 5 {
		t.Errorf("2024-03: got %+v", out[2])
	}
}

func TestCompareByLabelWithSinglePriorBucket(t *testing.T) {
	cur := []model.AggregatedPeriod{
		bucketOf("2024-01", map[string]float64{"v": 10}),
		bucketOf("2024-02", map[string]float64{"v": 20}),
		bucketOf("2024-03", map[string]float64{"v": 30}),
	}
	pri := []model.AggregatedPeriod{bucketOf("2024-02", map[string]float64{"v": 5})}

	out := aggregate.Compare(cur, pri)
	if len(out) != 3 {
		t.Fatalf("results: expected 3, got %d: %+v", len(out), out)
	}
	want := []struct {
		label          string
		current, prior float64
		pct            string
	}{
		{"2024-01", 10, 0, "NEW"},
		{"2024-02", 20, 5, "+300.0%"},
		{"2024-03", 30, 0, "NEW"},
	}
	for i, w := range want {
		r := out[i]
		if r.PeriodLabel != w.label || r.Current != w.current || r.Prior != w.prior || r.DeltaPercent != w.pct {
			t.Errorf("result %d: expected %s %g/%g %s, got %+v", i, w.label, w.current, w.prior, w.pct, r)
		}
	}

	// A single current bucket against several prior buckets is also by label.
	out = aggregate.Compare(pri, cur)
	if len(out) != 3 || out[0].PeriodLabel != "2024-02" || out[0].Current != 5 || out[0].Prior != 20 {
		t.Errorf("reversed: got %+v", out)
	}
}

func TestCompareEmptySides(t *testing.T) {
	if out := aggregate.Compare(nil, nil); len(out) != 0 {
		t.Errorf("expected no results, got %+v", out)
	}
	out := aggregate.Compare([]model.AggregatedPeriod{bucketOf("total", map[string]float64{"v": 3})}, nil)
	if len(out) != 1 || out[0].DeltaPercent != "NEW" {
		t.Errorf("expected NEW against an empty prior, got %+v", out)
	}
}

// ─── PriorRange ──────────────────────────────────────────────────────────────

func TestPriorRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		mode     aggregate.CompareMode
		want     model.DateRange
	}{
		{"prior year", "2024-03-01", "2024-03-31", aggregate.ComparePriorYear, model.DateRange{From: "2023-03-01", To: "2023-03-31"}},
		{"prior year leap day", "2024-02-01", "2024-02-29", aggregate.ComparePriorYear, model.DateRange{From: "2023-02-01", To: "2023-02-28"}},
		{"prior year from leap day", "2024-02-29", "2024-03-10", aggregate.ComparePriorYear, model.DateRange{From: "2023-02-28", To: "2023-03-10"}},
		{"prior period month", "2024-03-01", "2024-03-31", aggregate.ComparePriorPeriod, model.DateRange{From: "2024-01-30", To: "2024-02-29"}},
		{"prior period single day", "2024-01-01", "2024-01-01", aggregate.ComparePriorPeriod, model.DateRange{From: "2023-12-31", To: "2023-12-31"}},
		{"prior period week", "2024-01-08", "2024-01-14", aggregate.ComparePriorPeriod, model.DateRange{From: "2024-01-01", To: "2024-01-07"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := aggregate.PriorRange(tt.from, tt.to, tt.mode)
			if err != nil {
				t.Fatalf("PriorRange: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestPriorRangeErrors(t *testing.T) {
	if _, err := aggregate.PriorRange("2024-03-31", "2024-03-01", aggregate.ComparePriorYear); err == nil {
		t.Error("reversed range: expected error")
	}
	if _, err := aggregate.PriorRange("2024-3-1", "2024-03-31", aggregate.ComparePriorYear); err == nil {
		t.Error("malformed date: expected error")
	}
	if _, err := aggregate.PriorRange("2024-03-01", "2024-03-31", aggregate.CompareNone); err == nil {
		t.Error("mode none: expected error")
	}
}

func TestParseCompareMode(t *testing.T) {
	for in, want := range map[string]aggregate.CompareMode{
		"":             aggregate.CompareNone,
		"prior-period": aggregate.ComparePriorPeriod,
		"PRIOR_YEAR":   aggregate.ComparePriorYear,
	} {
		if got, err := aggregate.ParseCompareMode(in); err != nil || got != want {
			t.Errorf("ParseCompareMode(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := aggregate.ParseCompareMode("last_week"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}
