package lever

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

const DefaultAPIBase = "https://api.lever.co"

type posting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location string `json:"location"`
		Team     string `json:"team"`
	} `json:"categories"`
	WorkplaceType string `json:"workplaceType"`
}

func Adapter(apiBase string) types.Adapter {
	apiBase = strings.TrimRight(apiBase, "/")
	return types.Adapter{
		Vendor: vendor.Lever,
		Fetch: func(ctx context.Context, c *fetch.Client, t types.Target) (types.Source, error) {
			apiURL := fmt.Sprintf("%s/v0/postings/%s?mode=json", apiBase, url.PathEscape(t.Slug))

			res, err := c.Get(ctx, apiURL)
			if err != nil {
				return types.Source{RequestURL: apiURL}, fmt.Errorf("lever get: %w", err)
			}
			src := types.Source{RequestURL: apiURL, FinalURL: res.FinalURL, Status: res.Status}

			var postings []posting
			if err := types.Decode(res, &postings); err != nil {
				return src, fmt.Errorf("lever decode: %w", err)
			}
			for _, p := range postings {
				src.Items = append(src.Items, p)
			}
			src.Authoritative = true
			return src, nil
		},
		Parse: parse,
	}
}

func parse(t types.Target, item any) (domain.Posting, error) {
	p, ok := item.(posting)
	if !ok {
		return domain.Posting{}, fmt.Errorf("lever: unexpected item %T", item)
	}
	title := util.CleanText(p.Text)
	if p.ID == "" || p.HostedURL == "" || title == "" {
		return domain.Posting{}, fmt.Errorf("lever: posting %q missing id, title or url", p.ID)
	}
	loc := util.NormalizeLocation(p.Categories.Location)
	if loc == "" && strings.EqualFold(p.WorkplaceType, "remote") {
		loc = "Remote"
	}
	return domain.Posting{Position: title, Location: loc, URL: strings.TrimSpace(p.HostedURL)}, nil
}
