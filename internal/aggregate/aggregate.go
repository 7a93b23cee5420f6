package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/util"
)

// Aggregate sums observations per metric within each calendar bucket of the
// given period. Buckets are returned in ascending chronological order.
//
// Total always yields exactly one bucket labelled "from..to" using span, or
// the observed date range when span is empty. Other periods drop
// observations whose label is not a YYYY-MM-DD date; the second return value
// counts them. NaN values are ignored.
func Aggregate(obs []model.Observation, period Period, span model.DateRange) ([]model.AggregatedPeriod, int, error) {
	if period == Total {
		return []model.AggregatedPeriod{total(obs, span)}, 0, nil
	}
	if !isKnown(period) {
		return nil, 0, fmt.Errorf("aggregate: unknown period %q", period)
	}

	groups := make(map[string]*model.AggregatedPeriod)
	skipped := 0
	for _, o := range obs {
		d, ok := observationDate(o)
		if !ok {
			skipped++
			continue
		}
		if math.IsNaN(o.Value) {
			continue
		}
		label, start := bucket(d, period)
		g, exists := groups[label]
		if !exists {
			g = &model.AggregatedPeriod{Label: label, Start: start, Metrics: map[string]float64{}}
			groups[label] = g
		}
		g.Metrics[o.Metric] += o.Value
	}

	out := make([]model.AggregatedPeriod, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, skipped, nil
}

// total builds the single bucket spanning the whole range.
func total(obs []model.Observation, span model.DateRange) model.AggregatedPeriod {
	p := model.AggregatedPeriod{Metrics: map[string]float64{}}
	var first, last time.Time
	for _, o := range obs {
		if math.IsNaN(o.Value) {
			continue
		}
		p.Metrics[o.Metric] += o.Value
		if d, ok := observationDate(o); ok {
			if first.IsZero() || d.Before(first) {
				first = d
			}
			if d.After(last) {
				last = d
			}
		}
	}

	from, to := span.From, span.To
	if from == "" && !first.IsZero() {
		from = util.FormatDate(first)
	}
	if to == "" && !last.IsZero() {
		to = util.FormatDate(last)
	}
	switch {
	case from != "" && to != "":
		p.Label = from + ".." + to
	case from != "":
		p.Label = from + ".."
	default:
		p.Label = string(Total)
	}
	if t, err := util.ParseDate(from); err == nil {
		p.Start = t
	}
	return p
}

// Totals sums every bucket into one metric map.
func Totals(periods []model.AggregatedPeriod) map[string]float64 {
	out := map[string]float64{}
	for _, p := range periods {
		for k, v := range p.Metrics {
			out[k] += v
		}
	}
	return out
}

// MetricKeys returns the sorted union of metric keys across buckets.
func MetricKeys(periods ...[]model.AggregatedPeriod) []string {
	seen := map[string]bool{}
	for _, ps := range periods {
		for _, p := range ps {
			for k := range p.Metrics {
				seen[k] = true
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func observationDate(o model.Observation) (time.Time, bool) {
	if !o.Date.IsZero() {
		return o.Date, true
	}
	d, err := util.ParseDate(o.Label)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func isKnown(p Period) bool {
	for _, v := range Periods {
		if v == p {
			return true
		}
	}
	return false
}
