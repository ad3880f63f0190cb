package types

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/vendor"
)

// ErrMalformed marks a vendor response that did not match the expected shape.
var ErrMalformed = errors.New("malformed vendor response")

// Target is the board being scraped plus the company slug parsed from its URL.
type Target struct {
	Board domain.Board
	Slug  string
}

// Source is the raw result of fetching one board.
//
// Authoritative is set when the vendor answered in a recognised schema, so an
// empty Items really means the board has no openings. Partial is set when a
// paginated vendor still reported more pages after the page cap was reached.
type Source struct {
	Items         []any
	Authoritative bool
	Partial       bool
	RequestURL    string
	FinalURL      string
	Status        int
}

// Adapter is the fetch/parse pair for one vendor.
type Adapter struct {
	Vendor vendor.Type
	Fetch  func(ctx context.Context, c *fetch.Client, t Target) (Source, error)
	Parse  func(t Target, item any) (domain.Posting, error)
}

type ScrapeStatus struct {
	LastRunAt  string         `json:"last_run_at"`
	LastOkAt   string         `json:"last_ok_at"`
	LastError  string         `json:"last_error"`
	LastAdded  int            `json:"last_added"`
	LastDead   int            `json:"last_dead"`
	Running    bool           `json:"running"`
	LastRunID  string         `json:"last_run_id"`
	Categories map[string]int `json:"categories,omitempty"`
}

// Result is what a single board scrape hands to reconciliation.
type Result struct {
	Snapshot domain.Snapshot
	Outcome  domain.ScrapeOutcome
	Took     time.Duration
}

// Decode unmarshals a JSON vendor response. Body errors wrap ErrMalformed;
// status errors come back as *fetch.StatusError.
func Decode(res *fetch.Response, v any) error {
	if !res.OK() {
		return &fetch.StatusError{Status: res.Status, URL: res.RequestURL}
	}
	if err := fetch.DecodeJSON(res, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
