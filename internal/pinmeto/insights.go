package pinmeto

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/util"
)

// Networks lists the listing networks insights are available for.
var Networks = []string{"google", "facebook", "apple"}

// IsNetwork reports whether n is a supported network name.
func IsNetwork(n string) bool {
	for _, v := range Networks {
		if v == n {
			return true
		}
	}
	return false
}

// ─── Insights payload shapes ─────────────────────────────────────────────────

// InsightsShape identifies which of the known insights payloads was received.
type InsightsShape int

const (
	// ShapeSeries is a per-metric array of dated values:
	// [{"key":"VIEWS","metrics":[{"key":"2024-01-01","value":10}]}]
	ShapeSeries InsightsShape = iota + 1
	// ShapeTotals is one pre-aggregated value per metric:
	// [{"key":"VIEWS","value":250}]
	ShapeTotals
)

func (s InsightsShape) String() string {
	switch s {
	case ShapeSeries:
		return "series"
	case ShapeTotals:
		return "totals"
	default:
		return "unknown"
	}
}

// Insights is a decoded insights payload. Observations is populated for
// ShapeSeries, Totals for ShapeTotals.
type Insights struct {
	Shape        InsightsShape
	Observations []model.Observation
	Totals       map[string]float64
}

type rawInsightMetric struct {
	Key     *string  `json:"key"`
	Value   *float64 `json:"value"`
	Metrics *[]struct {
		Key   string   `json:"key"`
		Value *float64 `json:"value"`
	} `json:"metrics"`
}

// DecodeInsights classifies and decodes an insights payload. Mixed or
// unrecognised payloads are rejected with UnknownError.
func DecodeInsights(data json.RawMessage) (Insights, error) {
	if len(data) == 0 || string(data) == "null" {
		return Insights{Shape: ShapeSeries}, nil
	}
	var raw []rawInsightMetric
	if err := json.Unmarshal(data, &raw); err != nil {
		return Insights{}, unknownShape(fmt.Sprintf("insights payload is not a metric list: %v", err))
	}
	if len(raw) == 0 {
		return Insights{Shape: ShapeSeries}, nil
	}

	var series, totals int
	for i, m := range raw {
		if m.Key == nil || *m.Key == "" {
			return Insights{}, unknownShape(fmt.Sprintf("insights entry %d has no metric key", i))
		}
		switch {
		case m.Metrics != nil && m.Value == nil:
			series++
		case m.Value != nil && m.Metrics == nil:
			totals++
		default:
			return Insights{}, unknownShape(fmt.Sprintf("insights entry %q has neither a value nor a metrics array", *m.Key))
		}
	}
	if series > 0 && totals > 0 {
		return Insights{}, unknownShape("insights payload mixes dated series and totals")
	}

	if totals > 0 {
		out := Insights{Shape: ShapeTotals, Totals: make(map[string]float64, totals)}
		for _, m := range raw {
			out.Totals[*m.Key] += *m.Value
		}
		return out, nil
	}

	out := Insights{Shape: ShapeSeries}
	for _, m := range raw {
		for _, p := range *m.Metrics {
			if p.Value == nil {
				continue
			}
			obs := model.Observation{Metric: *m.Key, Label: p.Key, Value: *p.Value}
			if d, err := util.ParseDate(p.Key); err == nil {
				obs.Date = d
			}
			out.Observations = append(out.Observations, obs)
		}
	}
	return out, nil
}

func unknownShape(msg string) *Error {
	return &Error{Kind: KindUnknownError, Message: msg}
}

// ─── Insights endpoints ──────────────────────────────────────────────────────

// InsightsQuery selects one network's insights. An empty StoreID queries the
// whole account.
type InsightsQuery struct {
	Network string
	StoreID string
	From    string // YYYY-MM-DD
	To      string // YYYY-MM-DD
}

// InsightsURL returns the endpoint URL for q.
func (c *Client) InsightsURL(q InsightsQuery) string {
	params := url.Values{}
	params.Set("from", q.From)
	params.Set("to", q.To)
	network := strings.ToLower(q.Network)
	if q.StoreID == "" {
		return buildURL(c.locationsURL, params, "listings", "v4", c.accountID, "insights", network)
	}
	return buildURL(c.locationsURL, params, "listings", "v4", c.accountID, "locations", q.StoreID, "insights", network)
}

// GetInsights fetches and decodes insights for q.
func (c *Client) GetInsights(ctx context.Context, q InsightsQuery) (Insights, error) {
	if !IsNetwork(strings.ToLower(q.Network)) {
		return Insights{}, &Error{Kind: KindBadRequest, Message: fmt.Sprintf("unsupported network %q (expected one of %s)", q.Network, strings.Join(Networks, ", "))}
	}
	page, err := c.Execute(ctx, c.InsightsURL(q))
	if err != nil {
		return Insights{}, err
	}
	ins, err := DecodeInsights(page.Data)
	if err != nil {
		c.metrics.RecordUpstreamError(string(KindUnknownError))
		return Insights{}, err
	}
	return ins, nil
}
