package domain

import "time"

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Homepage  string    `json:"homepage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Board is a company's page on an ATS vendor. Inactive boards keep their
// listing history but are skipped by the poller.
type Board struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Company   string    `json:"company,omitempty"`
	URL       string    `json:"url"`
	Vendor    string    `json:"vendor"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
