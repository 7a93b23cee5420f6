// Package model defines the canonical data types used throughout the server.
// These types are the single source of truth for PinMeTo entities, metric
// aggregation results and the result envelope every tool and command returns.
package model

import (
	"time"

	"github.com/goccy/go-json"
)

// ─── PinMeTo Entity Types ────────────────────────────────────────────────────

// Address is the postal address of a location.
type Address struct {
	Street  string `json:"street,omitempty"`
	Zip     string `json:"zip,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Contact holds the public contact details of a location.
type Contact struct {
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Homepage string `json:"homepage,omitempty"`
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a single store record. Raw preserves the full upstream object
// so nothing the API returns is lost when a location is rendered as JSON.
type Location struct {
	StoreID            string          `json:"storeId"`
	Name               string          `json:"name"`
	LocationDescriptor string          `json:"locationDescriptor,omitempty"`
	IsActive           bool            `json:"isActive"`
	PermanentlyClosed  bool            `json:"permanentlyClosed,omitempty"`
	Address            Address         `json:"address"`
	Contact            Contact         `json:"contact"`
	Location           *GeoPoint       `json:"location,omitempty"`
	Raw                json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (l *Location) UnmarshalJSON(b []byte) error {
	type plain Location
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*l = Location(p)
	l.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// DisplayName returns the name with its descriptor, e.g. "Cafe (Central)".
func (l Location) DisplayName() string {
	if l.LocationDescriptor == "" {
		return l.Name
	}
	return l.Name + " (" + l.LocationDescriptor + ")"
}

// Review is a single customer rating with optional text.
type Review struct {
	StoreID      string `json:"storeId"`
	Rating       int    `json:"rating"`
	Date         string `json:"date"`
	Comment      string `json:"comment,omitempty"`
	Reply        string `json:"reply,omitempty"`
	ReviewerName string `json:"reviewerName,omitempty"`
}

// Keyword is one search term and the impressions it produced.
type Keyword struct {
	Keyword   string  `json:"keyword"`
	Value     float64 `json:"value"`
	Locations int     `json:"locations,omitempty"`
}

// ─── Metric Types ────────────────────────────────────────────────────────────

// Observation is one raw metric value as received from the API.
// Label is the upstream date or range label; Date is its parsed form and is
// zero for labels that are not calendar dates.
type Observation struct {
	Metric string    `json:"metric"`
	Label  string    `json:"label"`
	Date   time.Time `json:"-"`
	Value  float64   `json:"value"`
}

// AggregatedPeriod is the sum of every metric within one calendar bucket.
type AggregatedPeriod struct {
	Label   string             `json:"period"`
	Start   time.Time          `json:"-"`
	Metrics map[string]float64 `json:"metrics"`
}

// ComparisonResult compares one metric between a current and a prior bucket.
// DeltaPercent is a formatted percentage, "NEW" when the prior value is zero
// and the current one is not, or "0%" when both are zero.
type ComparisonResult struct {
	Metric       string   `json:"metric"`
	PeriodLabel  string   `json:"period,omitempty"`
	Current      float64  `json:"current"`
	Prior        float64  `json:"prior"`
	Delta        float64  `json:"delta"`
	DeltaPercent string   `json:"deltaPercent"`
	Ratio        *float64 `json:"ratio,omitempty"`
}

// DateRange is an inclusive YYYY-MM-DD range.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// InsightsReport is the payload of an insights tool call.
type InsightsReport struct {
	Network     string             `json:"network"`
	StoreID     string             `json:"storeId,omitempty"`
	Range       DateRange          `json:"range"`
	Aggregation string             `json:"aggregation"`
	Periods     []AggregatedPeriod `json:"periods"`
	Totals      map[string]float64 `json:"totals"`
	CompareWith string             `json:"compareWith,omitempty"`
	PriorRange  *DateRange         `json:"priorRange,omitempty"`
	Comparison  []ComparisonResult `json:"comparison,omitempty"`
	Trends      []MetricTrend      `json:"trends,omitempty"`
}

// MetricTrend is the fitted direction of one metric across aggregated periods.
type MetricTrend struct {
	Metric      string  `json:"metric"`
	Direction   string  `json:"direction"`
	SlopePerDay float64 `json:"slopePerDay"`
	R2          float64 `json:"r2"`
}

// RatingsSummary summarises a set of reviews.
type RatingsSummary struct {
	Network      string      `json:"network"`
	StoreID      string      `json:"storeId,omitempty"`
	Range        DateRange   `json:"range"`
	Count        int         `json:"count"`
	Average      float64     `json:"average"`
	Median       float64     `json:"median"`
	Distribution map[int]int `json:"distribution"`
	WithComment  int         `json:"withComment"`
	Replied      int         `json:"replied"`
	ReplyRate    float64     `json:"replyRate"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a result.
type ResultStats struct {
	CacheHit        bool  `json:"cacheHit"`
	DurationMs      int64 `json:"durationMs"`
	Items           int   `json:"items"`
	AllPagesFetched bool  `json:"allPagesFetched"`
}

// Result is the uniform envelope returned by every tool and command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindLocation     = "location"
	KindLocationList = "location_list"
	KindInsights     = "insights"
	KindInsightsSet  = "insights_set"
	KindRatings      = "ratings"
	KindReviews      = "reviews"
	KindKeywords     = "keywords"
	KindCacheInfo    = "cache_info"
	KindPeriods      = "periods"
)

// CacheInfo describes the state of the locations cache.
type CacheInfo struct {
	Cached          bool    `json:"cached"`
	AgeSeconds      float64 `json:"ageSeconds,omitempty"`
	Size            int     `json:"size,omitempty"`
	AllPagesFetched bool    `json:"allPagesFetched,omitempty"`
	TTLSeconds      float64 `json:"ttlSeconds"`
}
