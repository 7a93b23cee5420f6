package aggregate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/util"
)

// CompareMode selects the range a comparison is made against.
type CompareMode string

const (
	CompareNone        CompareMode = "none"
	ComparePriorPeriod CompareMode = "prior_period"
	ComparePriorYear   CompareMode = "prior_year"
)

// Delta-percent markers for values that have no ratio.
const (
	DeltaNew       = "NEW"
	DeltaNoChange  = "0%"
	DeltaUndefined = "n/a"
)

// ParseCompareMode accepts "none", "prior_period" or "prior_year"
// (case-insensitive, "-" allowed for "_"). An empty string means none.
func ParseCompareMode(s string) (CompareMode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "none":
		return CompareNone, nil
	case "prior_period":
		return ComparePriorPeriod, nil
	case "prior_year":
		return ComparePriorYear, nil
	}
	return "", fmt.Errorf("unknown comparison %q (use none, prior_period or prior_year)", s)
}

// ─── Prior range ─────────────────────────────────────────────────────────────

// PriorRange returns the range to compare from..to against.
//
// prior_period shifts both ends back by the inclusive length of the range, so
// the prior range ends the day before from. prior_year subtracts one calendar
// year from both ends, clamping Feb 29 to Feb 28.
func PriorRange(from, to string, mode CompareMode) (model.DateRange, error) {
	f, t, err := util.ParseRange(from, to)
	if err != nil {
		return model.DateRange{}, err
	}
	switch mode {
	case ComparePriorPeriod:
		days := int(t.Sub(f).Hours()/24) + 1
		return model.DateRange{
			From: util.FormatDate(f.AddDate(0, 0, -days)),
			To:   util.FormatDate(t.AddDate(0, 0, -days)),
		}, nil
	case ComparePriorYear:
		return model.DateRange{
			From: util.FormatDate(minusYear(f)),
			To:   util.FormatDate(minusYear(t)),
		}, nil
	}
	return model.DateRange{}, fmt.Errorf("no prior range for comparison mode %q", mode)
}

// minusYear keeps month and day, clamping the day to the target month's
// length. time.AddDate would roll Feb 29 over into March.
func minusYear(t time.Time) time.Time {
	y, m, d := t.Date()
	if last := daysIn(y-1, m); d > last {
		d = last
	}
	return time.Date(y-1, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ─── Comparison ──────────────────────────────────────────────────────────────

// Compare pairs current buckets with prior buckets and reports the change of
// every metric. Two single buckets (total aggregation over different ranges)
// are paired by position; everything else is paired by period label.
// Metrics or buckets missing on one side count as 0.
func Compare(current, prior []model.AggregatedPeriod) []model.ComparisonResult {
	if len(current) == 1 && len(prior) == 1 {
		return compareMetrics("", current[0].Metrics, prior[0].Metrics, MetricKeys(current, prior))
	}

	priorByLabel := make(map[string]map[string]float64, len(prior))
	for _, p := range prior {
		priorByLabel[p.Label] = p.Metrics
	}
	keys := MetricKeys(current, prior)

	var out []model.ComparisonResult
	matched := map[string]bool{}
	for _, c := range current {
		matched[c.Label] = true
		out = append(out, compareMetrics(c.Label, c.Metrics, priorByLabel[c.Label], keys)...)
	}
	for _, p := range prior {
		if !matched[p.Label] {
			out = append(out, compareMetrics(p.Label, nil, p.Metrics, keys)...)
		}
	}
	return out
}

func compareMetrics(label string, cur, pri map[string]float64, keys []string) []model.ComparisonResult {
	out := make([]model.ComparisonResult, 0, len(keys))
	for _, k := range keys {
		c, p := cur[k], pri[k]
		r := model.ComparisonResult{
			Metric:       k,
			PeriodLabel:  label,
			Current:      c,
			Prior:        p,
			Delta:        c - p,
			DeltaPercent: DeltaPercent(c, p),
		}
		if p != 0 {
			ratio := (c - p) / math.Abs(p) * 100
			r.Ratio = &ratio
		}
		out = append(out, r)
	}
	return out
}

// DeltaPercent formats the relative change from prior to current, e.g.
// "+12.5%". It returns DeltaNoChange when the values are equal. A zero prior
// gives DeltaNew for a positive current value and DeltaUndefined for a
// negative one.
func DeltaPercent(current, prior float64) string {
	if current == prior {
		return DeltaNoChange
	}
	if prior == 0 {
		if current > 0 {
			return DeltaNew
		}
		return DeltaUndefined
	}
	pct := (current - prior) / math.Abs(prior) * 100
	return fmt.Sprintf("%+.1f%%", pct)
}
