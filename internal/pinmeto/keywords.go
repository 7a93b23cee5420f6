package pinmeto

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

const monthLayout = "2006-01"

// ─── Google keywords ─────────────────────────────────────────────────────────

// KeywordsQuery selects Google search keywords for a month range. An empty
// StoreID queries the whole account.
type KeywordsQuery struct {
	StoreID string
	From    string // YYYY-MM
	To      string // YYYY-MM
}

// KeywordsURL returns the endpoint URL for q.
func (c *Client) KeywordsURL(q KeywordsQuery) string {
	params := url.Values{}
	params.Set("from", q.From)
	params.Set("to", q.To)
	if q.StoreID == "" {
		return buildURL(c.locationsURL, params, "listings", "v4", c.accountID, "insights", "google-keywords")
	}
	return buildURL(c.locationsURL, params, "listings", "v4", c.accountID, "insights", "google-keywords", q.StoreID)
}

// GetKeywords fetches the keyword list for q.
func (c *Client) GetKeywords(ctx context.Context, q KeywordsQuery) ([]model.Keyword, error) {
	from, err := time.Parse(monthLayout, q.From)
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: fmt.Sprintf("invalid month %q: expected YYYY-MM", q.From)}
	}
	to, err := time.Parse(monthLayout, q.To)
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: fmt.Sprintf("invalid month %q: expected YYYY-MM", q.To)}
	}
	if to.Before(from) {
		return nil, &Error{Kind: KindBadRequest, Message: fmt.Sprintf("month range %s..%s is reversed", q.From, q.To)}
	}

	var kws []model.Keyword
	if err := c.getInto(ctx, c.KeywordsURL(q), &kws); err != nil {
		return nil, err
	}
	return kws, nil
}
