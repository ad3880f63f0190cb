package httpapi

import "jobglob-engine/internal/domain"

type CompanyRequest struct {
	Name     string `json:"name"`
	Homepage string `json:"homepage"`
}

type BoardRequest struct {
	Company string `json:"company"`
	URL     string `json:"url"`
	Vendor  string `json:"vendor,omitempty"`
}

type ActiveRequest struct {
	Active bool `json:"active"`
}

type ApplicationRequest struct {
	ListingID int64 `json:"listing_id"`
}

type CrawlRequest struct {
	URL string `json:"url"`
}

// DetectRequest asks for a company's boards. JobsPage short-circuits the
// pipeline to a single page classification. Save records what was found.
type DetectRequest struct {
	Company  string `json:"company"`
	Homepage string `json:"homepage,omitempty"`
	JobsPage string `json:"jobs_page,omitempty"`
	Save     bool   `json:"save,omitempty"`
}

type DetectResponse struct {
	Company string         `json:"company"`
	Vendor  string         `json:"vendor,omitempty"`
	Method  string         `json:"method"`
	Boards  []string       `json:"boards"`
	Saved   []domain.Board `json:"saved,omitempty"`
	Report  any            `json:"report,omitempty"`
}

type ReviewGroup struct {
	Category domain.OutcomeCategory `json:"category"`
	Outcomes []domain.ScrapeOutcome `json:"outcomes"`
}

type ReviewResponse struct {
	RunID  string        `json:"run_id"`
	Groups []ReviewGroup `json:"groups"`
}
