package smartrecruiters

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
	DefaultAPIBase = "https://api.smartrecruiters.com"
	pageSize       = 100
	maxOffset      = 5000
)

// Response schema (public API) is typically:
// { "content": [...], "totalFound": N, "offset": O, "limit": L }
type postingsResponse struct {
	Content    []posting `json:"content"`
	TotalFound int       `json:"totalFound"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

type posting struct {
	ID       string `json:"id"`
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Ref      string `json:"ref"`
	Location struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Remote  bool   `json:"remote"`
	} `json:"location"`
}

func Adapter(apiBase string) types.Adapter {
	apiBase = strings.TrimRight(apiBase, "/")
	return types.Adapter{
		Vendor: vendor.SmartRecruiters,
		Fetch: func(ctx context.Context, c *fetch.Client, t types.Target) (types.Source, error) {
			return fetchPages(ctx, c, apiBase, t)
		},
		Parse: parse,
	}
}

func fetchPages(ctx context.Context, c *fetch.Client, apiBase string, t types.Target) (types.Source, error) {
	slug := strings.TrimSpace(t.Slug)
	if slug == "" {
		return types.Source{}, fmt.Errorf("smartrecruiters: empty slug")
	}
	base := fmt.Sprintf("%s/v1/companies/%s/postings", apiBase, url.PathEscape(slug))

	var src types.Source
	for offset := 0; offset <= maxOffset; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return src, err
		}

		u := fmt.Sprintf("%s?limit=%d&offset=%d", base, pageSize, offset)
		res, err := c.Get(ctx, u)
		if err != nil {
			return src, fmt.Errorf("smartrecruiters get: %w", err)
		}
		// the first page decides status and redirect reporting
		if offset == 0 {
			src.RequestURL, src.FinalURL, src.Status = u, res.FinalURL, res.Status
		}

		var pr postingsResponse
		if err := types.Decode(res, &pr); err != nil {
			return src, fmt.Errorf("smartrecruiters decode: %w", err)
		}
		src.Authoritative = true
		for _, p := range pr.Content {
			src.Items = append(src.Items, p)
		}

		if len(pr.Content) == 0 || (pr.TotalFound > 0 && offset+pageSize >= pr.TotalFound) {
			return src, nil
		}
	}
	// the cap was hit with pages left, so the item list is incomplete
	src.Partial = true
	return src, nil
}

func parse(t types.Target, item any) (domain.Posting, error) {
	p, ok := item.(posting)
	if !ok {
		return domain.Posting{}, fmt.Errorf("smartrecruiters: unexpected item %T", item)
	}
	title := util.CleanText(p.Name)
	id := util.FirstNonEmpty(p.ID, p.UUID)
	if title == "" || id == "" {
		return domain.Posting{}, fmt.Errorf("smartrecruiters: posting %q missing id or title", p.Ref)
	}

	loc := util.JoinLocation(p.Location.City, p.Location.Region, p.Location.Country)
	if p.Location.Remote {
		loc = util.JoinLocation("Remote", loc)
	}
	return domain.Posting{
		Position: title,
		Location: loc,
		URL:      fmt.Sprintf("https://jobs.smartrecruiters.com/%s/%s", t.Slug, id),
	}, nil
}
