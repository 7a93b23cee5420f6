package pinmeto

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

// ─── Ratings & reviews ───────────────────────────────────────────────────────

// RatingsQuery selects reviews for one network. An empty StoreID queries the
// whole account.
type RatingsQuery struct {
	Network  string
	StoreID  string
	From     string // YYYY-MM-DD
	To       string // YYYY-MM-DD
	MaxPages int
}

// RatingsURL returns the first-page URL for q.
func (c *Client) RatingsURL(q RatingsQuery) string {
	params := url.Values{}
	params.Set("from", q.From)
	params.Set("to", q.To)
	network := strings.ToLower(q.Network)
	if q.StoreID == "" {
		return buildURL(c.apiURL, params, "listings", "v3", c.accountID, "ratings", network)
	}
	return buildURL(c.apiURL, params, "listings", "v3", c.accountID, "ratings", network, q.StoreID)
}

// ReviewSet is the decoded result of a paginated ratings fetch.
type ReviewSet struct {
	Reviews         []model.Review
	AllPagesFetched bool
	Err             error
}

// GetReviews pages through the reviews for q.
func (c *Client) GetReviews(ctx context.Context, q RatingsQuery) ReviewSet {
	if !IsNetwork(strings.ToLower(q.Network)) {
		return ReviewSet{Err: &Error{Kind: KindBadRequest, Message: fmt.Sprintf("unsupported network %q", q.Network)}}
	}
	ps := c.FetchAll(ctx, c.RatingsURL(q), q.MaxPages)
	set := ReviewSet{AllPagesFetched: ps.AllPagesFetched, Err: ps.Err}
	set.Reviews = make([]model.Review, 0, len(ps.Records))
	for _, r := range ps.Records {
		var rv model.Review
		if err := json.Unmarshal(r, &rv); err != nil {
			continue
		}
		if rv.StoreID == "" {
			rv.StoreID = q.StoreID
		}
		set.Reviews = append(set.Reviews, rv)
	}
	return set
}
