package pinmeto

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/metrics"
)

// TokenLifetime is how long an issued bearer token is reused: one minute
// short of the upstream 60-minute token life.
const TokenLifetime = 59 * time.Minute

// TokenSource supplies bearer tokens to the request executor.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenManager obtains and caches an OAuth2 client-credentials token.
// Concurrent callers during an exchange share that single exchange.
type TokenManager struct {
	tokenURL   string
	appID      string
	appSecret  string
	httpClient *http.Client
	metrics    *metrics.Metrics
	now        func() time.Time

	mu       sync.Mutex
	token    string
	issuedAt time.Time

	flight singleflight.Group
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithTokenClock replaces time.Now, for tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) { tm.now = now }
}

// WithTokenMetrics attaches metrics collectors.
func WithTokenMetrics(m *metrics.Metrics) TokenOption {
	return func(tm *TokenManager) { tm.metrics = m }
}

// WithTokenHTTPClient replaces the HTTP client used for the exchange.
func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(tm *TokenManager) { tm.httpClient = c }
}

// NewTokenManager creates a TokenManager exchanging credentials at
// {apiURL}/oauth/token.
func NewTokenManager(apiURL, appID, appSecret string, opts ...TokenOption) *TokenManager {
	tm := &TokenManager{
		tokenURL:   strings.TrimRight(apiURL, "/") + "/oauth/token",
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: RequestTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Token returns a valid bearer token, exchanging credentials only when the
// cached token is missing or older than TokenLifetime.
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	if tok, ok := tm.cached(); ok {
		return tok, nil
	}

	v, err, shared := tm.flight.Do("token", func() (interface{}, error) {
		// A flight that finished just before this one started may already
		// have stored a fresh token.
		if tok, ok := tm.cached(); ok {
			return tok, nil
		}
		// The exchange outlives any single caller's cancellation because
		// other callers may be waiting on it.
		tok, err := tm.exchange(context.WithoutCancel(ctx))
		if err != nil {
			tm.metrics.RecordTokenExchange("error")
			return "", err
		}
		tm.metrics.RecordTokenExchange("ok")

		tm.mu.Lock()
		tm.token = tok
		tm.issuedAt = tm.now()
		tm.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		logging.Ctx(ctx).Debug().Msg("joined in-flight token exchange")
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next call re-exchanges.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	tm.token = ""
	tm.issuedAt = time.Time{}
	tm.mu.Unlock()
}

func (tm *TokenManager) cached() (string, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.token == "" {
		return "", false
	}
	if !tm.now().Before(tm.issuedAt.Add(TokenLifetime)) {
		return "", false
	}
	return tm.token, true
}

func (tm *TokenManager) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Kind: KindAuthInvalidCredentials, Message: fmt.Sprintf("building token request: %v", err), Err: err}
	}
	creds := base64.StdEncoding.EncodeToString([]byte(tm.appID + ":" + tm.appSecret))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)

	logging.Debug().Str("url", tm.tokenURL).Msg("exchanging client credentials")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		cause := ClassifyTransport(err)
		return "", &Error{
			Kind:    KindAuthInvalidCredentials,
			Message: "Token exchange failed: " + cause.Message,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindAuthInvalidCredentials, Status: resp.StatusCode, Message: "Token exchange failed: reading response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindAuthInvalidCredentials
		if resp.StatusCode == http.StatusForbidden {
			kind = KindAuthAppDisabled
		}
		return "", &Error{
			Kind:    kind,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Token exchange failed with HTTP %d", resp.StatusCode),
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &Error{Kind: KindAuthInvalidCredentials, Status: resp.StatusCode, Message: "Token exchange failed: invalid JSON response", Err: err}
	}
	if payload.AccessToken == "" {
		return "", &Error{Kind: KindAuthInvalidCredentials, Status: resp.StatusCode, Message: "Token exchange failed: no access_token in response"}
	}
	return payload.AccessToken, nil
}
