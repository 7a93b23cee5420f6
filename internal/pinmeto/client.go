// Package pinmeto implements the read-only HTTP client for the PinMeTo
// location platform: OAuth client-credentials tokens, authenticated GETs
// with uniform error classification, cursor pagination and decoding of the
// locations, insights, ratings and keyword payloads.
//
// Upstream failures are never panics: every call returns either a value or
// a *Error carrying a Kind and a Retryable flag. The client does not retry
// on its own; retry policy belongs to the caller.
package pinmeto

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/metrics"
)

const (
	DefaultAPIURL          = "https://api.pinmeto.com"
	DefaultLocationsAPIURL = "https://locations.api.pinmeto.com"

	// RequestTimeout bounds every upstream request, token exchange included.
	RequestTimeout = 30 * time.Second

	breakerName = "pinmeto-api"
)

// UserAgent identifies this client to the PinMeTo API. cmd overrides the
// version suffix at startup.
var UserAgent = "pinmeto-location-mcp/1.0"

// Page is the unwrapped body of one successful response.
type Page struct {
	Data    json.RawMessage
	NextURL string
}

// Options configures a Client.
type Options struct {
	APIURL          string
	LocationsAPIURL string
	AccountID       string
	Tokens          TokenSource
	HTTPClient      *http.Client
	// Rate is the maximum requests per second; 0 disables throttling.
	Rate float64
	// Breaker enables the circuit breaker around upstream calls.
	Breaker bool
	Metrics *metrics.Metrics
}

// Client is the PinMeTo API HTTP client.
type Client struct {
	apiURL       string
	locationsURL string
	accountID    string
	tokens       TokenSource
	httpClient   *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[Page]
	metrics      *metrics.Metrics
}

// NewClient creates a Client. A nil HTTPClient gets the fixed 30-second
// request timeout.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.LocationsAPIURL == "" {
		opts.LocationsAPIURL = DefaultLocationsAPIURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: RequestTimeout}
	}

	c := &Client{
		apiURL:       strings.TrimRight(opts.APIURL, "/"),
		locationsURL: strings.TrimRight(opts.LocationsAPIURL, "/"),
		accountID:    opts.AccountID,
		tokens:       opts.Tokens,
		httpClient:   hc,
		metrics:      opts.Metrics,
	}
	if opts.Rate > 0 {
		burst := int(opts.Rate)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	if opts.Breaker {
		c.breaker = newBreaker(opts.Metrics)
	}
	return c
}

// AccountID returns the account every URL is built for.
func (c *Client) AccountID() string { return c.accountID }

// ─── Circuit breaker ─────────────────────────────────────────────────────────

// newBreaker trips after 5 consecutive server or network failures and probes
// again after 30 seconds. Client errors (4xx) never count as failures.
func newBreaker(m *metrics.Metrics) *gobreaker.CircuitBreaker[Page] {
	m.SetBreakerState(breakerName, 0)
	return gobreaker.NewCircuitBreaker[Page](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			e := AsError(err)
			return e.Kind != KindServerError && e.Kind != KindNetworkError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			m.SetBreakerState(name, breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// ─── Request executor ────────────────────────────────────────────────────────

// Execute issues one authenticated GET and unwraps the response envelope.
// The returned error, when non-nil, is always a *Error.
func (c *Client) Execute(ctx context.Context, rawURL string) (Page, error) {
	if c.breaker == nil {
		return c.execute(ctx, rawURL)
	}
	page, err := c.breaker.Execute(func() (Page, error) {
		return c.execute(ctx, rawURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.RecordUpstreamError(string(KindServerError))
		return Page{}, &Error{
			Kind:      KindServerError,
			Message:   "PinMeTo API temporarily unavailable (circuit open after repeated failures)",
			Retryable: true,
			Err:       err,
		}
	}
	return page, err
}

func (c *Client) execute(ctx context.Context, rawURL string) (Page, error) {
	log := logging.Ctx(ctx)
	endpoint := c.endpointLabel(rawURL)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Page{}, c.fail(limiterError(ctx, err))
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return Page{}, c.fail(AsError(err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, c.fail(&Error{Kind: KindBadRequest, Message: fmt.Sprintf("invalid request URL: %v", err), Err: err})
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	log.Debug().Str("endpoint", endpoint).Str("url", rawURL).Msg("pinmeto request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamCall(endpoint, "transport_error", time.Since(start))
		return Page{}, c.fail(ClassifyTransport(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.RecordUpstreamCall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return Page{}, c.fail(ClassifyTransport(err))
	}

	log.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("pinmeto response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
				inv.Invalidate()
			}
		}
		return Page{}, c.fail(ClassifyStatus(resp.StatusCode, resp.Header, string(body)))
	}

	page, err := decodeEnvelope(body)
	if err != nil {
		return Page{}, c.fail(&Error{Kind: KindUnknownError, Status: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err), Err: err})
	}
	if page.NextURL != "" {
		page.NextURL = resolveURL(rawURL, page.NextURL)
	}
	return page, nil
}

// limiterError classifies a failed rate limiter wait. The limiter refuses up
// front when the wait would outlast the context deadline, without wrapping
// context.DeadlineExceeded, so that case is reported as a timeout too.
func limiterError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindNetworkError, Message: "Request cancelled", Retryable: true, Err: err}
	}
	if _, ok := ctx.Deadline(); ok || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetworkError, Message: "Request timed out", Retryable: true, Err: err}
	}
	return &Error{Kind: KindNetworkError, Message: "Request throttled: " + err.Error(), Retryable: true, Err: err}
}

func (c *Client) fail(e *Error) *Error {
	c.metrics.RecordUpstreamError(string(e.Kind))
	return e
}

// envelope is the list-endpoint wrapper. Endpoints returning a bare object
// have no "data" key; the whole body is then the payload.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Paging *struct {
		NextURL string `json:"nextUrl"`
	} `json:"paging"`
}

func decodeEnvelope(body []byte) (Page, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Page{Data: json.RawMessage("null")}, nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Arrays and scalars are valid bare payloads.
		if !json.Valid(body) {
			return Page{}, err
		}
		return Page{Data: json.RawMessage(body)}, nil
	}
	p := Page{Data: env.Data}
	if len(p.Data) == 0 {
		p.Data = json.RawMessage(body)
	}
	if env.Paging != nil {
		p.NextURL = strings.TrimSpace(env.Paging.NextURL)
	}
	return p, nil
}

// resolveURL resolves a possibly relative cursor against the URL it came from.
func resolveURL(base, next string) string {
	b, err := url.Parse(base)
	if err != nil {
		return next
	}
	n, err := url.Parse(next)
	if err != nil {
		return next
	}
	return b.ResolveReference(n).String()
}

// endpointLabel collapses account and store ids out of a URL path so the
// metrics label set stays small.
func (c *Client) endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid"
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segs {
		switch {
		case c.accountID != "" && s == c.accountID:
			segs[i] = ":account"
		case i > 0 && (segs[i-1] == "locations" || segs[i-1] == "google-keywords"):
			segs[i] = ":store"
		case i > 1 && segs[i-2] == "ratings":
			segs[i] = ":store"
		}
	}
	return "/" + strings.Join(segs, "/")
}

// getInto executes rawURL and decodes the payload into out.
func (c *Client) getInto(ctx context.Context, rawURL string, out interface{}) error {
	page, err := c.Execute(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(page.Data, out); err != nil {
		return &Error{Kind: KindUnknownError, Message: fmt.Sprintf("decoding payload: %v", err), Err: err}
	}
	return nil
}

// buildURL joins base, path segments (escaped) and query.
func buildURL(base string, params url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := base + "/" + strings.Join(escaped, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}
