package ashby

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

const DefaultAPIBase = "https://api.ashbyhq.com"

type boardResponse struct {
	Jobs []job `json:"jobs"`
}

type job struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	JobURL   string `json:"jobUrl"`
	IsRemote bool   `json:"isRemote"`
}

func Adapter(apiBase string) types.Adapter {
	apiBase = strings.TrimRight(apiBase, "/")
	return types.Adapter{
		Vendor: vendor.Ashby,
		Fetch: func(ctx context.Context, c *fetch.Client, t types.Target) (types.Source, error) {
			apiURL := fmt.Sprintf("%s/posting-api/job-board/%s", apiBase, url.PathEscape(t.Slug))

			res, err := c.Get(ctx, apiURL)
			if err != nil {
				return types.Source{RequestURL: apiURL}, fmt.Errorf("ashby get: %w", err)
			}
			src := types.Source{RequestURL: apiURL, FinalURL: res.FinalURL, Status: res.Status}

			var br boardResponse
			if err := types.Decode(res, &br); err != nil {
				return src, fmt.Errorf("ashby decode: %w", err)
			}
			if br.Jobs == nil {
				// unknown orgs answer 200 without a jobs array
				return src, fmt.Errorf("ashby: %w: no jobs field", types.ErrMalformed)
			}
			for _, j := range br.Jobs {
				src.Items = append(src.Items, j)
			}
			src.Authoritative = true
			return src, nil
		},
		Parse: parse,
	}
}

func parse(_ types.Target, item any) (domain.Posting, error) {
	j, ok := item.(job)
	if !ok {
		return domain.Posting{}, fmt.Errorf("ashby: unexpected item %T", item)
	}
	p := domain.Posting{
		Position: util.CleanText(j.Title),
		Location: util.NormalizeLocation(j.Location),
		URL:      strings.TrimSpace(j.JobURL),
	}
	if j.IsRemote && !strings.Contains(strings.ToLower(p.Location), "remote") {
		p.Location = util.JoinLocation("Remote", p.Location)
	}
	if p.Position == "" || p.URL == "" {
		return domain.Posting{}, fmt.Errorf("ashby: job %q missing title or url", j.Title)
	}
	return p, nil
}
