// Package tools implements the PinMeTo operations exposed to agent hosts
// and to the CLI. Service holds the operations themselves; mcp.go adapts
// them into MCP tools with a uniform text + structured envelope.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/analyze"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/app"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/validation"
)

// DefaultKeywordLimit is the number of keywords returned when no limit is given.
const DefaultKeywordLimit = 25

// Service implements every tool operation against one Session. Each method
// returns a Result, or an error that pinmeto.AsError can classify.
type Service struct {
	sess *app.Session
	now  func() time.Time
}

// NewService creates a Service.
func NewService(sess *app.Session) *Service {
	return &Service{sess: sess, now: time.Now}
}

// Session returns the session the service runs against.
func (s *Service) Session() *app.Session { return s.sess }

// ─── Inputs ──────────────────────────────────────────────────────────────────

// LocationInput selects one location.
type LocationInput struct {
	StoreID string `json:"storeId" validate:"required"`
}

// LocationsInput filters the cached location list.
type LocationsInput struct {
	Search       string `json:"search"`
	City         string `json:"city"`
	ActiveOnly   bool   `json:"activeOnly"`
	ForceRefresh bool   `json:"forceRefresh"`
	Limit        int    `json:"limit" validate:"gte=0"`
}

// InsightsInput selects one network's insights.
type InsightsInput struct {
	Network     string `json:"network" validate:"required,oneof=google facebook apple"`
	StoreID     string `json:"storeId"`
	From        string `json:"from" validate:"required,isodate"`
	To          string `json:"to" validate:"required,isodate"`
	Aggregation string `json:"aggregation"`
	CompareWith string `json:"compareWith"`
}

// AllNetworksInput selects insights for every network at once.
type AllNetworksInput struct {
	StoreID     string `json:"storeId"`
	From        string `json:"from" validate:"required,isodate"`
	To          string `json:"to" validate:"required,isodate"`
	Aggregation string `json:"aggregation"`
	CompareWith string `json:"compareWith"`
}

// RatingsInput selects the reviews summarised by Ratings.
type RatingsInput struct {
	Network string `json:"network" validate:"required,oneof=google facebook apple"`
	StoreID string `json:"storeId"`
	From    string `json:"from" validate:"required,isodate"`
	To      string `json:"to" validate:"required,isodate"`
}

// ReviewsInput lists individual reviews.
type ReviewsInput struct {
	RatingsInput
	MinRating int `json:"minRating" validate:"gte=0,lte=5"`
	MaxRating int `json:"maxRating" validate:"gte=0,lte=5"`
	Limit     int `json:"limit" validate:"gte=0"`
}

// KeywordsInput selects Google search keywords for a month range.
type KeywordsInput struct {
	StoreID string `json:"storeId"`
	From    string `json:"from" validate:"required,yearmonth"`
	To      string `json:"to" validate:"required,yearmonth"`
	Limit   int    `json:"limit" validate:"gte=0"`
}

// CacheInput optionally forces a refresh of the locations cache.
type CacheInput struct {
	Refresh bool `json:"refresh"`
}

// ─── Locations ───────────────────────────────────────────────────────────────

// GetLocation fetches one location by store id.
func (s *Service) GetLocation(ctx context.Context, in LocationInput) (*model.Result, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	started := s.now()
	loc, err := s.sess.Client.GetLocation(ctx, strings.TrimSpace(in.StoreID))
	if err != nil {
		return nil, err
	}
	return s.result(model.KindLocation, "get_location", loc, started, 1, true), nil
}

// ListLocations returns the cached location list, filtered.
func (s *Service) ListLocations(ctx context.Context, in LocationsInput) (*model.Result, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	started := s.now()
	snap, err := s.sess.Locations.Get(ctx, in.ForceRefresh)
	if err != nil {
		return nil, err
	}

	locs := FilterLocations(snap.Locations, in.Search, in.City, in.ActiveOnly)
	matched := len(locs)
	if in.Limit > 0 && len(locs) > in.Limit {
		locs = locs[:in.Limit]
	}

	res := s.result(model.KindLocationList, "get_locations", locs, started, len(locs), snap.AllPagesFetched)
	res.Stats.CacheHit = snap.CacheHit
	if snap.Stale {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Refreshing locations failed; serving the list cached at %s.", snap.FetchedAt.UTC().Format(time.RFC3339)))
	}
	if !snap.AllPagesFetched {
		res.Warnings = append(res.Warnings, "Not all pages were successfully fetched; the list may be incomplete.")
	}
	if snap.Err != nil {
		res.Warnings = append(res.Warnings, snap.Err.Error())
	}
	if len(locs) < matched {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Showing %d of %d matching locations.", len(locs), matched))
	}
	return res, nil
}

// FilterLocations returns the locations matching every non-empty filter.
// search matches store id, name, descriptor, street and city
// case-insensitively. The input slice is never modified.
func FilterLocations(locs []model.Location, search, city string, activeOnly bool) []model.Location {
	search = strings.ToLower(strings.TrimSpace(search))
	city = strings.ToLower(strings.TrimSpace(city))
	out := make([]model.Location, 0, len(locs))
	for _, l := range locs {
		if activeOnly && !l.IsActive {
			continue
		}
		if city != "" && strings.ToLower(l.Address.City) != city {
			continue
		}
		if search != "" {
			hay := strings.ToLower(strings.Join([]string{l.StoreID, l.Name, l.LocationDescriptor, l.Address.Street, l.Address.City}, " "))
			if !strings.Contains(hay, search) {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// CacheStatus reports the locations cache state, refreshing it first when
// asked to.
func (s *Service) CacheStatus(ctx context.Context, in CacheInput) (*model.Result, error) {
	started := s.now()
	var warnings []string
	if in.Refresh {
		snap, err := s.sess.Locations.Get(ctx, true)
		switch {
		case err != nil:
			warnings = append(warnings, "Refresh failed: "+err.Error())
		case snap.Stale:
			warnings = append(warnings, "Refresh failed; the previous entry was kept.")
		}
	}
	info := s.sess.Locations.Info()
	res := s.result(model.KindCacheInfo, "cache_status", info, started, info.Size, info.AllPagesFetched || !info.Cached)
	res.Warnings = warnings
	return res, nil
}

// ─── Ratings, reviews, keywords ──────────────────────────────────────────────

// Ratings summarises the reviews of one network.
func (s *Service) Ratings(ctx context.Context, in RatingsInput) (*model.Result, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if err := checkRange(in.From, in.To); err != nil {
		return nil, err
	}
	started := s.now()
	set, err := s.reviews(ctx, in)
	if err != nil {
		return nil, err
	}

	summary := analyze.SummarizeRatings(set.Reviews)
	summary.Network = in.Network
	summary.StoreID = in.StoreID
	summary.Range = model.DateRange{From: in.From, To: in.To}

	res := s.result(model.KindRatings, "get_ratings", &summary, started, summary.Count, set.AllPagesFetched)
	res.Warnings = partialWarnings(set.AllPagesFetched, set.Err)
	return res, nil
}

// Reviews lists individual reviews, optionally filtered by rating.
func (s *Service) Reviews(ctx context.Context, in ReviewsInput) (*model.Result, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if err := checkRange(in.From, in.To); err != nil {
		return nil, err
	}
	if in.MinRating > 0 && in.MaxRating > 0 && in.MinRating > in.MaxRating {
		return nil, badRequest("minRating %d is greater than maxRating %d", in.MinRating, in.MaxRating)
	}
	started := s.now()
	set, err := s.reviews(ctx, in.RatingsInput)
	if err != nil {
		return nil, err
	}

	rs := analyze.FilterReviews(set.Reviews, in.MinRating, in.MaxRating)
	matched := len(rs)
	if in.Limit > 0 && len(rs) > in.Limit {
		rs = rs[:in.Limit]
	}
	res := s.result(model.KindReviews, "get_reviews", rs, started, len(rs), set.AllPagesFetched)
	res.Warnings = partialWarnings(set.AllPagesFetched, set.Err)
	if len(rs) < matched {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Showing %d of %d matching reviews.", len(rs), matched))
	}
	return res, nil
}

func (s *Service) reviews(ctx context.Context, in RatingsInput) (pinmeto.ReviewSet, error) {
	set := s.sess.Client.GetReviews(ctx, pinmeto.RatingsQuery{
		Network:  in.Network,
		StoreID:  in.StoreID,
		From:     in.From,
		To:       in.To,
		MaxPages: s.sess.Config.MaxPages,
	})
	if len(set.Reviews) == 0 && !set.AllPagesFetched && set.Err != nil {
		return set, set.Err
	}
	return set, nil
}

// Keywords returns the top Google search keywords for a month range.
func (s *Service) Keywords(ctx context.Context, in KeywordsInput) (*model.Result, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	started := s.now()
	kws, err := s.sess.Client.GetKeywords(ctx, pinmeto.KeywordsQuery{StoreID: in.StoreID, From: in.From, To: in.To})
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultKeywordLimit
	}
	top := analyze.TopKeywords(kws, limit)
	res := s.result(model.KindKeywords, "get_keywords", top, started, len(top), true)
	if len(top) < len(kws) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Showing top %d of %d keywords.", len(top), len(kws)))
	}
	return res, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Service) result(kind, command string, data interface{}, started time.Time, items int, complete bool) *model.Result {
	now := s.now()
	return &model.Result{
		Kind:        kind,
		GeneratedAt: now.UTC(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			DurationMs:      now.Sub(started).Milliseconds(),
			Items:           items,
			AllPagesFetched: complete,
		},
	}
}

func validate(in interface{}) error {
	if err := validation.Struct(in); err != nil {
		return &pinmeto.Error{Kind: pinmeto.KindBadRequest, Message: err.Error(), Err: err}
	}
	return nil
}

func badRequest(format string, args ...interface{}) *pinmeto.Error {
	return &pinmeto.Error{Kind: pinmeto.KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func partialWarnings(complete bool, err error) []string {
	var out []string
	if !complete {
		out = append(out, "Not all pages were successfully fetched; results may be incomplete.")
	}
	if err != nil {
		out = append(out, err.Error())
	}
	return out
}
