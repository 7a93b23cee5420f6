package tools

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/aggregate"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/analyze"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/util"
)

// insightsParams is a validated insights request for one network.
type insightsParams struct {
	network string
	storeID string
	span    model.DateRange
	period  aggregate.Period
	mode    aggregate.CompareMode
}

// Insights fetches, aggregates and optionally compares one network's
// insights.
func (s *Service) Insights(ctx context.Context, in InsightsInput) (*model.Result, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	p, err := parseInsights(in.Network, in.StoreID, in.From, in.To, in.Aggregation, in.CompareWith)
	if err != nil {
		return nil, err
	}
	started := s.now()
	report, warnings, err := s.report(ctx, p)
	if err != nil {
		return nil, err
	}
	res := s.result(model.KindInsights, "get_insights", &report, started, len(report.Periods), true)
	res.Warnings = warnings
	return res, nil
}

// AllNetworksInsights runs Insights for every network concurrently. A
// network that fails becomes a warning; the call fails only when every
// network does.
func (s *Service) AllNetworksInsights(ctx context.Context, in AllNetworksInput) (*model.Result, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	params := make([]insightsParams, len(pinmeto.Networks))
	for i, n := range pinmeto.Networks {
		p, err := parseInsights(n, in.StoreID, in.From, in.To, in.Aggregation, in.CompareWith)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	started := s.now()

	reports := make([]model.InsightsReport, len(params))
	warns := make([][]string, len(params))
	errs := make([]error, len(params))

	var g errgroup.Group
	for i := range params {
		g.Go(func() error {
			reports[i], warns[i], errs[i] = s.report(ctx, params[i])
			return nil
		})
	}
	_ = g.Wait()

	var failures util.MultiError
	var out []model.InsightsReport
	var warnings []string
	for i, p := range params {
		if errs[i] != nil {
			failures.Add(fmt.Errorf("%s: %w", p.network, errs[i]))
			continue
		}
		out = append(out, reports[i])
		for _, w := range warns[i] {
			warnings = append(warnings, p.network+": "+w)
		}
	}
	if len(out) == 0 {
		return nil, failures.Err()
	}
	for _, e := range failures.Errors {
		logging.Ctx(ctx).Warn().Err(e).Msg("network insights failed")
		warnings = append(warnings, "unavailable: "+e.Error())
	}

	items := 0
	for _, r := range out {
		items += len(r.Periods)
	}
	res := s.result(model.KindInsightsSet, "get_all_networks_insights", out, started, items, true)
	res.Warnings = warnings
	return res, nil
}

func parseInsights(network, storeID, from, to, agg, cmp string) (insightsParams, error) {
	if err := checkRange(from, to); err != nil {
		return insightsParams{}, err
	}
	period, err := aggregate.ParsePeriod(agg)
	if err != nil {
		return insightsParams{}, badRequest("%v", err)
	}
	mode, err := aggregate.ParseCompareMode(cmp)
	if err != nil {
		return insightsParams{}, badRequest("%v", err)
	}
	return insightsParams{
		network: network,
		storeID: storeID,
		span:    model.DateRange{From: from, To: to},
		period:  period,
		mode:    mode,
	}, nil
}

func checkRange(from, to string) error {
	if _, _, err := util.ParseRange(from, to); err != nil {
		return badRequest("%v", err)
	}
	return nil
}

// report builds one network's InsightsReport. A failed comparison fetch is
// reported as a warning, not an error.
func (s *Service) report(ctx context.Context, p insightsParams) (model.InsightsReport, []string, error) {
	q := pinmeto.InsightsQuery{Network: p.network, StoreID: p.storeID, From: p.span.From, To: p.span.To}
	ins, err := s.sess.Client.GetInsights(ctx, q)
	if err != nil {
		return model.InsightsReport{}, nil, err
	}
	periods, warnings, err := bucketize(ins, p.period, p.span)
	if err != nil {
		return model.InsightsReport{}, nil, err
	}

	r := model.InsightsReport{
		Network:     p.network,
		StoreID:     p.storeID,
		Range:       p.span,
		Aggregation: string(p.period),
		Periods:     periods,
		Totals:      aggregate.Totals(periods),
	}
	if p.period != aggregate.Total && len(periods) > 1 {
		r.Trends = analyze.Trends(periods, aggregate.MetricKeys(periods))
	}
	if p.mode == aggregate.CompareNone {
		return r, warnings, nil
	}

	prior, err := aggregate.PriorRange(p.span.From, p.span.To, p.mode)
	if err != nil {
		return model.InsightsReport{}, nil, badRequest("%v", err)
	}
	r.CompareWith = string(p.mode)
	r.PriorRange = &prior

	pq := q
	pq.From, pq.To = prior.From, prior.To
	pins, err := s.sess.Client.GetInsights(ctx, pq)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Comparison with %s..%s unavailable: %v", prior.From, prior.To, err))
		return r, warnings, nil
	}
	priorTotal, _, err := bucketize(pins, aggregate.Total, prior)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Comparison with %s..%s unavailable: %v", prior.From, prior.To, err))
		return r, warnings, nil
	}
	if len(priorTotal) == 0 {
		priorTotal = []model.AggregatedPeriod{{Label: prior.From + ".." + prior.To}}
	}
	// The comparison is always between whole-range totals.
	current := []model.AggregatedPeriod{{Label: p.span.From + ".." + p.span.To, Metrics: r.Totals}}
	r.Comparison = aggregate.Compare(current, priorTotal)
	return r, warnings, nil
}

// bucketize turns a decoded insights payload into aggregated periods.
// Pre-aggregated totals can only ever form a single bucket.
func bucketize(ins pinmeto.Insights, period aggregate.Period, span model.DateRange) ([]model.AggregatedPeriod, []string, error) {
	var warnings []string
	switch ins.Shape {
	case pinmeto.ShapeTotals:
		start, _ := util.ParseDate(span.From)
		bucket := model.AggregatedPeriod{Label: span.From + ".." + span.To, Start: start, Metrics: map[string]float64{}}
		for k, v := range ins.Totals {
			bucket.Metrics[k] = v
		}
		if period != aggregate.Total {
			warnings = append(warnings, fmt.Sprintf("The API returned pre-aggregated totals; %s aggregation is not available for this query.", period))
		}
		return []model.AggregatedPeriod{bucket}, warnings, nil
	default:
		if len(ins.Observations) == 0 {
			return nil, nil, nil
		}
		periods, skipped, err := aggregate.Aggregate(ins.Observations, period, span)
		if err != nil {
			return nil, nil, badRequest("%v", err)
		}
		if skipped > 0 {
			warnings = append(warnings, fmt.Sprintf("%d observations without a calendar date were left out.", skipped))
		}
		return periods, warnings, nil
	}
}
