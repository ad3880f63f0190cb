package greenhouse

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/scrape/util"
	"jobglob-engine/internal/vendor"
)

const DefaultAPIBase = "https://boards-api.greenhouse.io"

type boardResponse struct {
	Jobs []job `json:"jobs"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

type job struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
}

// Adapter reads the public boards API rooted at apiBase.
func Adapter(apiBase string) types.Adapter {
	apiBase = strings.TrimRight(apiBase, "/")
	return types.Adapter{
		Vendor: vendor.Greenhouse,
		Fetch: func(ctx context.Context, c *fetch.Client, t types.Target) (types.Source, error) {
			return fetchBoard(ctx, c, apiBase, t)
		},
		Parse: parse,
	}
}

func fetchBoard(ctx context.Context, c *fetch.Client, apiBase string, t types.Target) (types.Source, error) {
	apiURL := fmt.Sprintf("%s/v1/boards/%s/jobs", apiBase, url.PathEscape(t.Slug))

	res, err := c.Get(ctx, apiURL)
	if err != nil {
		return types.Source{RequestURL: apiURL}, fmt.Errorf("greenhouse get: %w", err)
	}
	src := types.Source{RequestURL: apiURL, FinalURL: res.FinalURL, Status: res.Status}

	var br boardResponse
	if err := types.Decode(res, &br); err != nil {
		return src, fmt.Errorf("greenhouse decode: %w", err)
	}
	for _, j := range br.Jobs {
		src.Items = append(src.Items, j)
	}
	src.Authoritative = true
	return src, nil
}

func parse(t types.Target, item any) (domain.Posting, error) {
	j, ok := item.(job)
	if !ok {
		return domain.Posting{}, fmt.Errorf("greenhouse: unexpected item %T", item)
	}
	p := domain.Posting{
		Position: util.CleanText(j.Title),
		Location: util.NormalizeLocation(j.Location.Name),
		URL:      strings.TrimSpace(j.AbsoluteURL),
	}
	if p.URL == "" && j.ID > 0 {
		p.URL = strings.TrimRight(t.Board.URL, "/") + "/jobs/" + strconv.FormatInt(j.ID, 10)
	}
	if p.Position == "" || p.URL == "" {
		return domain.Posting{}, fmt.Errorf("greenhouse: job %d missing title or url", j.ID)
	}
	return p, nil
}
