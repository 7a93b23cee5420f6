package pinmeto

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
)

// PageSet is the outcome of a paginated fetch. Records holds every record
// collected before the fetch stopped; Err is the error that stopped it, if
// any. An empty, incomplete PageSet is a total failure.
type PageSet struct {
	Records         []json.RawMessage
	AllPagesFetched bool
	Pages           int
	Err             error
}

// Failed reports whether the fetch produced nothing and did not finish.
func (ps PageSet) Failed() bool {
	return len(ps.Records) == 0 && !ps.AllPagesFetched
}

// FetchAll follows paging.nextUrl from startURL, concatenating each page's
// data array. Pages are fetched strictly in order. maxPages <= 0 means no
// ceiling.
//
// A failed page stops the walk and keeps the records collected so far with
// AllPagesFetched=false. Reaching maxPages with a cursor left also reports
// AllPagesFetched=false. A page without a cursor, or an empty page, ends the
// walk normally.
func (c *Client) FetchAll(ctx context.Context, startURL string, maxPages int) PageSet {
	log := logging.Ctx(ctx)
	var ps PageSet
	current := startURL
	seen := map[string]bool{}

	for {
		seen[current] = true
		page, err := c.Execute(ctx, current)
		if err != nil {
			log.Warn().Err(err).Int("pages", ps.Pages).Int("records", len(ps.Records)).
				Msg("couldn't fetch all pages for the request")
			ps.Err = err
			ps.AllPagesFetched = false
			return ps
		}
		ps.Pages++
		c.metrics.RecordPage()

		records, err := pageRecords(page.Data)
		if err != nil {
			log.Warn().Err(err).Int("page", ps.Pages).Msg("unexpected page payload")
			ps.Err = &Error{Kind: KindUnknownError, Message: err.Error(), Err: err}
			ps.AllPagesFetched = false
			return ps
		}
		ps.Records = append(ps.Records, records...)

		switch {
		case page.NextURL == "":
			ps.AllPagesFetched = true
			return ps
		case len(records) == 0:
			// A cursor on an empty page means there is nothing more to read.
			ps.AllPagesFetched = true
			return ps
		case seen[page.NextURL]:
			log.Warn().Str("next_url", page.NextURL).Msg("pagination cursor repeats; stopping")
			ps.AllPagesFetched = true
			return ps
		case maxPages > 0 && ps.Pages >= maxPages:
			log.Info().Int("max_pages", maxPages).Msg("page ceiling reached with more pages available")
			ps.AllPagesFetched = false
			return ps
		}
		current = page.NextURL
	}
}

// pageRecords splits a page payload into records. A null or missing payload
// is an empty page.
func pageRecords(data json.RawMessage) ([]json.RawMessage, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("page data is not a list: %w", err)
	}
	return records, nil
}
