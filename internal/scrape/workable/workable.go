package workable

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/scrape/util"
	"jobglob-engine/internal/vendor"
)

const (
	DefaultAPIBase = "https://apply.workable.com"
	maxPages       = 50
)

type jobsRequest struct {
	Query string `json:"query"`
	Token string `json:"token,omitempty"`
}

type jobsResponse struct {
	Total    int    `json:"total"`
	Results  []job  `json:"results"`
	NextPage string `json:"nextPage"`
}

type job struct {
	Shortcode string `json:"shortcode"`
	Title     string `json:"title"`
	Remote    bool   `json:"remote"`
	Location  struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
}

func Adapter(apiBase string) types.Adapter {
	apiBase = strings.TrimRight(apiBase, "/")
	return types.Adapter{
		Vendor: vendor.Workable,
		Fetch: func(ctx context.Context, c *fetch.Client, t types.Target) (types.Source, error) {
			return fetchPages(ctx, c, apiBase, t)
		},
		Parse: parse,
	}
}

// fetchPages follows the nextPage token until the API stops returning one.
func fetchPages(ctx context.Context, c *fetch.Client, apiBase string, t types.Target) (types.Source, error) {
	apiURL := fmt.Sprintf("%s/api/v3/accounts/%s/jobs", apiBase, url.PathEscape(t.Slug))

	src := types.Source{RequestURL: apiURL}
	token := ""
	for page := 0; page < maxPages; page++ {
		res, err := c.PostJSON(ctx, apiURL, jobsRequest{Token: token})
		if err != nil {
			return src, fmt.Errorf("workable post: %w", err)
		}
		if page == 0 {
			src.FinalURL, src.Status = res.FinalURL, res.Status
		}

		var jr jobsResponse
		if err := types.Decode(res, &jr); err != nil {
			return src, fmt.Errorf("workable decode: %w", err)
		}
		src.Authoritative = true
		for _, j := range jr.Results {
			src.Items = append(src.Items, j)
		}
		if jr.NextPage == "" || len(jr.Results) == 0 {
			return src, nil
		}
		token = jr.NextPage
	}
	src.Partial = true
	return src, nil
}

func parse(t types.Target, item any) (domain.Posting, error) {
	j, ok := item.(job)
	if !ok {
		return domain.Posting{}, fmt.Errorf("workable: unexpected item %T", item)
	}
	title := util.CleanText(j.Title)
	if j.Shortcode == "" || title == "" {
		return domain.Posting{}, fmt.Errorf("workable: job %q missing shortcode or title", j.Shortcode)
	}
	loc := util.JoinLocation(j.Location.City, j.Location.Region, j.Location.Country)
	if j.Remote {
		loc = util.JoinLocation("Remote", loc)
	}
	return domain.Posting{
		Position: title,
		Location: loc,
		URL:      strings.TrimRight(t.Board.URL, "/") + "/j/" + j.Shortcode,
	}, nil
}
