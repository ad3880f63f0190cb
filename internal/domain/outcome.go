package domain

import "time"

// OutcomeCategory groups board scrape results for operator review.
type OutcomeCategory string

const (
	OutcomeOK         OutcomeCategory = "ok"
	OutcomeRedirect   OutcomeCategory = "redirect"
	OutcomeNotFound   OutcomeCategory = "404"
	OutcomeNoListings OutcomeCategory = "no_listings"
	OutcomeParseFail  OutcomeCategory = "parse_fail"
	OutcomeMisc       OutcomeCategory = "misc"
)

// Categories lists every category in review order.
var Categories = []OutcomeCategory{
	OutcomeRedirect, OutcomeNotFound, OutcomeNoListings, OutcomeParseFail, OutcomeMisc, OutcomeOK,
}

type ScrapeOutcome struct {
	RunID    string          `json:"run_id"`
	BoardID  int64           `json:"board_id"`
	Company  string          `json:"company"`
	BoardURL string          `json:"board_url"`
	Category OutcomeCategory `json:"category"`
	Detail   string          `json:"detail,omitempty"`
	At       time.Time       `json:"at"`
}
