// Package app wires together configuration, the API client, the locations
// cache and metrics into a single Session that tool handlers and commands
// receive at runtime.
package app

import (
	"context"
	"net/http"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/cache"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/config"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/metrics"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
)

// Session holds every runtime dependency. One Session serves one account
// for the lifetime of the process.
type Session struct {
	Config    *config.Config
	Tokens    *pinmeto.TokenManager
	Client    *pinmeto.Client
	Locations *cache.LocationCache
	Metrics   *metrics.Metrics
}

// Option customises NewSession.
type Option func(*sessionOptions)

type sessionOptions struct {
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// WithHTTPClient replaces the HTTP client used for the token exchange and
// API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *sessionOptions) { o.httpClient = hc }
}

// WithMetrics shares an existing metrics registry instead of creating one.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *sessionOptions) { o.metrics = m }
}

// NewSession builds a Session from resolved config. cfg must already be
// validated.
func NewSession(cfg *config.Config, opts ...Option) *Session {
	o := sessionOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	m := o.metrics
	if m == nil {
		m = metrics.New()
	}

	tokenOpts := []pinmeto.TokenOption{pinmeto.WithTokenMetrics(m)}
	if o.httpClient != nil {
		tokenOpts = append(tokenOpts, pinmeto.WithTokenHTTPClient(o.httpClient))
	}
	tokens := pinmeto.NewTokenManager(cfg.APIURL, cfg.AppID, cfg.AppSecret, tokenOpts...)

	client := pinmeto.NewClient(pinmeto.Options{
		APIURL:          cfg.APIURL,
		LocationsAPIURL: cfg.LocationsAPIURL,
		AccountID:       cfg.AccountID,
		Tokens:          tokens,
		HTTPClient:      o.httpClient,
		Rate:            cfg.Rate,
		Breaker:         cfg.Breaker,
		Metrics:         m,
	})

	maxPages := cfg.MaxPages
	locations := cache.New(
		func(ctx context.Context) pinmeto.LocationSet {
			return client.FetchAllLocations(ctx, maxPages)
		},
		cache.WithTTL(cfg.CacheTTL),
		cache.WithMetrics(m),
	)

	return &Session{
		Config:    cfg,
		Tokens:    tokens,
		Client:    client,
		Locations: locations,
		Metrics:   m,
	}
}
