package aggregate_test

import (
	"testing"
	"time"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/aggregate"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// daily builds one observation per day for metric from start.
func daily(metric, start string, values ...float64) []model.Observation {
	d := date(start)
	out := make([]model.Observation, len(values))
	for i, v := range values {
		day := d.AddDate(0, 0, i)
		out[i] = model.Observation{Metric: metric, Label: day.Format("2006-01-02"), Date: day, Value: v}
	}
	return out
}

// date parses "YYYY-MM-DD" and panics on error, test use only.
func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic("date: " + err.Error())
	}
	return t
}

func labels(ps []model.AggregatedPeriod) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Label
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ─── Total ───────────────────────────────────────────────────────────────────

func TestAggregateTotal(t *testing.T) {
	obs := []model.Observation{
		{Metric: "views", Label: "2024-01-01", Value: 100},
		{Metric: "views", Label: "2024-01-02", Value: 150},
	}
	out, _, err := aggregate.Aggregate(obs, aggregate.Total, model.DateRange{From: "2024-01-01", To: "2024-01-02"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("buckets: expected exactly 1, got %d", len(out))
	}
	if out[0].Metrics["views"] != 250 {
		t.Errorf("views: expected 250, got %g", out[0].Metrics["views"])
	}
	if out[0].Label != "2024-01-01..2024-01-02" {
		t.Errorf("label: got %q", out[0].Label)
	}
}

func TestAggregateTotalEmpty(t *testing.T) {
	out, _, err := aggregate.Aggregate(nil, aggregate.Total, model.DateRange{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(out) != 1 || out[0].Label != "total" || len(out[0].Metrics) != 0 {
		t.Errorf("expected one empty total bucket, got %+v", out)
	}
}

func TestAggregateTotalLabelFromObservations(t *testing.T) {
	obs := daily("calls", "2024-05-10", 1, 2, 3)
	out, _, _ := aggregate.Aggregate(obs, aggregate.Total, model.DateRange{})
	if out[0].Label != "2024-05-10..2024-05-12" {
		t.Errorf("label: got %q", out[0].Label)
	}
	if out[0].Metrics["calls"] != 6 {
		t.Errorf("calls: expected 6, got %g", out[0].Metrics["calls"])
	}
}

// ─── Calendar buckets ────────────────────────────────────────────────────────

func TestAggregateDaily(t *testing.T) {
	obs := append(daily("views", "2024-01-01", 1, 2), daily("calls", "2024-01-02", 5)...)
	out, _, err := aggregate.Aggregate(obs, aggregate.Daily, model.DateRange{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !equalStrings(labels(out), []string{"2024-01-01", "2024-01-02"}) {
		t.Fatalf("labels: got %v", labels(out))
	}
	if out[1].Metrics["views"] != 2 || out[1].Metrics["calls"] != 5 {
		t.Errorf("2024-01-02: got %v", out[1].Metrics)
	}
}

func TestAggregateWeeklyStartsMonday(t *testing.T) {
	// 2024-01-01 is a Monday; 2024-01-07 a Sunday.
	obs := daily("views", "2023-12-31", 1, 1, 1, 1, 1, 1, 1, 1, 1)
	out, _, err := aggregate.Aggregate(obs, aggregate.Weekly, model.DateRange{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := []string{"2023-12-25", "2024-01-01", "2024-01-08"}
	if !equalStrings(labels(out), want) {
		t.Fatalf("labels: expected %v, got %v", want, labels(out))
	}
	if out[1].Metrics["views"] != 7 {
		t.Errorf("week of 2024-01-01: expected 7, got %g", out[1].Metrics["views"])
	}
}

func TestAggregatePeriodLabels(t *testing.T) {
	obs := []model.Observation{
		{Metric: "v", Label: "2023-12-31", Value: 1},
		{Metric: "v", Label: "2024-02-15", Value: 2},
		{Metric: "v", Label: "2024-07-01", Value: 4},
		{Metric: "v", Label: "2024-11-30", Value: 8},
	}
	tests := []struct {
		period aggregate.Period
		want   []string
	}{
		{aggregate.Monthly, []string{"2023-12", "2024-02", "2024-07", "2024-11"}},
		{aggregate.Quarterly, []string{"2023-Q4", "2024-Q1", "2024-Q3", "2024-Q4"}},
		{aggregate.HalfYearly, []string{"2023-H2", "2024-H1", "2024-H2"}},
		{aggregate.Yearly, []string{"2023", "2024"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			out, _, err := aggregate.Aggregate(obs, tt.period, model.DateRange{})
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if !equalStrings(labels(out), tt.want) {
				t.Errorf("labels: expected %v, got %v", tt.want, labels(out))
			}
		})
	}
}

func TestAggregateChronologicalAcrossYears(t *testing.T) {
	// Lexical order of "2024-Q1" and "2023-H2"-style labels is irrelevant;
	// ordering follows bucket start dates.
	obs := []model.Observation{
		{Metric: "v", Label: "2025-01-05", Value: 1},
		{Metric: "v", Label: "2024-12-30", Value: 1},
		{Metric: "v", Label: "2024-06-01", Value: 1},
	}
	out, _, _ := aggregate.Aggregate(obs, aggregate.Weekly, model.DateRange{})
	for i := 1; i < len(out); i++ {
		if !out[i-1].Start.Before(out[i].Start) {
			t.Fatalf("buckets out of order: %v", labels(out))
		}
	}
}

func TestAggregateSkipsUndatedLabels(t *testing.T) {
	obs := []model.Observation{
		{Metric: "v", Label: "2024-01-01", Value: 1},
		{Metric: "v", Label: "last-30-days", Value: 99},
	}
	out, skipped, err := aggregate.Aggregate(obs, aggregate.Monthly, model.DateRange{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped: expected 1, got %d", skipped)
	}
	if len(out) != 1 || out[0].Metrics["v"] != 1 {
		t.Errorf("expected only the dated observation, got %+v", out)
	}
}

func TestAggregateUnknownPeriod(t *testing.T) {
	if _, _, err := aggregate.Aggregate(nil, aggregate.Period("fortnightly"), model.DateRange{}); err == nil {
		t.Error("expected an error for an unknown period")
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	obs := daily("v", "2024-01-01", 1, 2)
	before := obs[0]
	_, _, _ = aggregate.Aggregate(obs, aggregate.Monthly, model.DateRange{})
	if obs[0] != before {
		t.Error("input observation was modified")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := map[string]aggregate.Period{
		"":            aggregate.Total,
		"Weekly":      aggregate.Weekly,
		"half_yearly": aggregate.HalfYearly,
		"half-yearly": aggregate.HalfYearly,
		"annual":      aggregate.Yearly,
	}
	for in, want := range tests {
		got, err := aggregate.ParsePeriod(in)
		if err != nil || got != want {
			t.Errorf("ParsePeriod(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := aggregate.ParsePeriod("hourly"); err == nil {
		t.Error("ParsePeriod(hourly): expected error")
	}
}

func TestTotalsAndMetricKeys(t *testing.T) {
	ps := []model.AggregatedPeriod{
		{Label: "a", Metrics: map[string]float64{"views": 1, "calls": 2}},
		{Label: "b", Metrics: map[string]float64{"views": 3}},
	}
	tot := aggregate.Totals(ps)
	if tot["views"] != 4 || tot["calls"] != 2 {
		t.Errorf("Totals: got %v", tot)
	}
	if keys := aggregate.MetricKeys(ps); !equalStrings(keys, []string{"calls", "views"}) {
		t.Errorf("MetricKeys: got %v", keys)
	}
}
