package pinmeto

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

// locationsPageSize is the page size requested for the bulk locations query.
const locationsPageSize = "100"

// ─── Locations ───────────────────────────────────────────────────────────────

// GetLocation fetches a single location by store id.
func (c *Client) GetLocation(ctx context.Context, storeID string) (*model.Location, error) {
	u := buildURL(c.apiURL, nil, "listings", "v3", c.accountID, "locations", storeID)
	var loc model.Location
	if err := c.getInto(ctx, u, &loc); err != nil {
		return nil, err
	}
	if loc.StoreID == "" {
		loc.StoreID = storeID
	}
	return &loc, nil
}

// LocationsURL returns the first-page URL of the bulk locations query.
func (c *Client) LocationsURL() string {
	params := url.Values{}
	params.Set("pagesize", locationsPageSize)
	return buildURL(c.apiURL, params, "listings", "v3", c.accountID, "locations")
}

// LocationSet is the decoded result of a bulk locations fetch.
type LocationSet struct {
	Locations       []model.Location
	AllPagesFetched bool
	Err             error
}

// FetchAllLocations pages through every location of the account.
// Malformed records are dropped and reported through Err.
func (c *Client) FetchAllLocations(ctx context.Context, maxPages int) LocationSet {
	ps := c.FetchAll(ctx, c.LocationsURL(), maxPages)
	locs, err := DecodeLocations(ps.Records)
	set := LocationSet{Locations: locs, AllPagesFetched: ps.AllPagesFetched, Err: ps.Err}
	if err != nil && set.Err == nil {
		set.Err = err
	}
	return set
}

// DecodeLocations decodes raw location records. Undecodable records are
// dropped; an error is returned only if at least one record was dropped.
func DecodeLocations(records []json.RawMessage) ([]model.Location, error) {
	locs := make([]model.Location, 0, len(records))
	dropped := 0
	for _, r := range records {
		var l model.Location
		if err := json.Unmarshal(r, &l); err != nil {
			dropped++
			continue
		}
		locs = append(locs, l)
	}
	if dropped > 0 {
		return locs, fmt.Errorf("decoding locations: %d of %d records malformed", dropped, len(records))
	}
	return locs, nil
}
