// Package analyze computes summaries over reviews, keywords and aggregated
// metric periods. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

// ─── Ratings ──────────────────────────────────────────────────────────────────

// SummarizeRatings computes count, average, median and the 1–5 star
// distribution of reviews. Ratings outside 1..5 are counted but left out of
// the distribution. The caller fills in Network, StoreID and Range.
func SummarizeRatings(reviews []model.Review) model.RatingsSummary {
	s := model.RatingsSummary{
		Count:        len(reviews),
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	if len(reviews) == 0 {
		return s
	}

	vals := make([]float64, 0, len(reviews))
	for _, r := range reviews {
		vals = append(vals, float64(r.Rating))
		if r.Rating >= 1 && r.Rating <= 5 {
			s.Distribution[r.Rating]++
		}
		if strings.TrimSpace(r.Comment) != "" {
			s.WithComment++
		}
		if strings.TrimSpace(r.Reply) != "" {
			s.Replied++
		}
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	s.Average = round2(sumF(vals) / float64(len(vals)))
	s.Median = percentile(sorted, 50)
	s.ReplyRate = round2(float64(s.Replied) / float64(s.Count) * 100)
	return s
}

// FilterReviews keeps reviews whose rating lies within [min, max].
// A zero bound is open.
func FilterReviews(reviews []model.Review, min, max int) []model.Review {
	if min == 0 && max == 0 {
		return reviews
	}
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if min > 0 && r.Rating < min {
			continue
		}
		if max > 0 && r.Rating > max {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ─── Keywords ─────────────────────────────────────────────────────────────────

// TopKeywords returns the n keywords with the most impressions, ties broken
// alphabetically. n <= 0 returns all of them, sorted.
func TopKeywords(keywords []model.Keyword, n int) []model.Keyword {
	out := append([]model.Keyword(nil), keywords...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Keyword < out[j].Keyword
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendMethod selects the regression algorithm.
type TrendMethod string

const (
	TrendLinear   TrendMethod = "linear"
	TrendTheilSen TrendMethod = "theil-sen"
)

// flatThreshold is the slope per day, relative to the mean, below which a
// metric is reported as flat.
const flatThreshold = 0.001

// Trend fits a trend to one metric across periods. X values are days since
// the first period start. Periods without a start date are skipped.
func Trend(metric string, periods []model.AggregatedPeriod, method TrendMethod) (model.MetricTrend, error) {
	tr := model.MetricTrend{Metric: metric}

	var pts []point
	var t0 int64
	first := true
	for _, p := range periods {
		if p.Start.IsZero() {
			continue
		}
		unix := p.Start.Unix()
		if first {
			t0 = unix
			first = false
		}
		pts = append(pts, point{float64(unix-t0) / 86400, p.Metrics[metric]})
	}
	if len(pts) < 2 {
		return tr, fmt.Errorf("trend: need at least 2 dated periods, got %d", len(pts))
	}

	var slope, intercept float64
	switch method {
	case TrendTheilSen:
		slope = theilSenSlope(pts)
		xMean := meanPts(pts, func(p point) float64 { return p.x })
		yMean := meanPts(pts, func(p point) float64 { return p.y })
		intercept = yMean - slope*xMean
	default:
		slope, intercept = olsRegress(pts)
	}

	tr.SlopePerDay = slope
	tr.R2 = r2(pts, slope, intercept)

	scale := math.Abs(meanPts(pts, func(p point) float64 { return p.y }))
	if scale == 0 {
		scale = 1
	}
	switch rel := slope / scale; {
	case rel > flatThreshold:
		tr.Direction = "up"
	case rel < -flatThreshold:
		tr.Direction = "down"
	default:
		tr.Direction = "flat"
	}
	return tr, nil
}

// Trends fits every metric present in periods, in sorted metric order.
// Metrics that cannot be fitted are omitted.
func Trends(periods []model.AggregatedPeriod, keys []string) []model.MetricTrend {
	var out []model.MetricTrend
	for _, k := range keys {
		tr, err := Trend(k, periods, TrendLinear)
		if err != nil {
			continue
		}
		out = append(out, tr)
	}
	return out
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

func theilSenSlope(pts []point) float64 {
	var slopes []float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dx := pts[j].x - pts[i].x
			if dx == 0 {
				continue
			}
			slopes = append(slopes, (pts[j].y-pts[i].y)/dx)
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return percentile(slopes, 50)
}

func r2(pts []point, slope, intercept float64) float64 {
	yMean := meanPts(pts, func(p point) float64 { return p.y })
	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func meanPts(pts []point, f func(point) float64) float64 {
	var s float64
	for _, p := range pts {
		s += f(p)
	}
	return s / float64(len(pts))
}
