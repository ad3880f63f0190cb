package domain

import (
	"errors"
	"strings"
	"time"
)

type Listing struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	Company   string     `json:"company,omitempty"`
	Position  string     `json:"position"`
	Location  string     `json:"location"`
	URL       string     `json:"url"`
	Alive     bool       `json:"alive"`
	CreatedAt time.Time  `json:"created_at"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
}

// Posting is one parsed entry from a board scrape, before it is persisted.
type Posting struct {
	Position string `json:"position"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// Snapshot is everything an adapter reports about one scrape of one board.
//
// HadParseFailures covers fetch-level failures too. BoardConfirmedEmpty is
// only set when the vendor answered in a recognised shape with zero postings.
type Snapshot struct {
	Postings            []Posting
	HadParseFailures    bool
	BoardConfirmedEmpty bool
}

type Application struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	AppliedAt time.Time `json:"applied_at"`
	Rejected  bool      `json:"rejected"`
}

type Rejection struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	RejectedAt    time.Time `json:"rejected_at"`
}

// NormalizeURL trims whitespace and trailing slashes.
func NormalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// URLKey is the identity of a listing within a company.
func URLKey(raw string) string {
	return strings.ToLower(NormalizeURL(raw))
}

// ErrDuplicateURL is returned when a listing with the same URL key already
// exists for the company.
var ErrDuplicateURL = errors.New("duplicate listing url")
