package bamboo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/scrape/util"
	"jobglob-engine/internal/vendor"
)

type listResponse struct {
	Result []opening `json:"result"`
}

type opening struct {
	ID             json.Number `json:"id"`
	JobOpeningName string      `json:"jobOpeningName"`
	IsRemote       *bool       `json:"isRemote"`
	Location       struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"location"`
}

// Adapter reads the careers list endpoint that sits next to the board page.
func Adapter() types.Adapter {
	return types.Adapter{
		Vendor: vendor.Bamboo,
		Fetch: func(ctx context.Context, c *fetch.Client, t types.Target) (types.Source, error) {
			listURL := strings.TrimRight(t.Board.URL, "/") + "/list"

			res, err := c.Get(ctx, listURL)
			if err != nil {
				return types.Source{RequestURL: listURL}, fmt.Errorf("bamboo get: %w", err)
			}
			src := types.Source{RequestURL: listURL, FinalURL: res.FinalURL, Status: res.Status}

			var lr listResponse
			if err := types.Decode(res, &lr); err != nil {
				return src, fmt.Errorf("bamboo decode: %w", err)
			}
			for _, o := range lr.Result {
				src.Items = append(src.Items, o)
			}
			src.Authoritative = true
			return src, nil
		},
		Parse: parse,
	}
}

func parse(t types.Target, item any) (domain.Posting, error) {
	o, ok := item.(opening)
	if !ok {
		return domain.Posting{}, fmt.Errorf("bamboo: unexpected item %T", item)
	}
	title := util.CleanText(o.JobOpeningName)
	if o.ID.String() == "" || title == "" {
		return domain.Posting{}, fmt.Errorf("bamboo: opening %q missing id or title", o.ID)
	}
	loc := util.JoinLocation(o.Location.City, o.Location.State)
	if o.IsRemote != nil && *o.IsRemote {
		loc = util.JoinLocation("Remote", loc)
	}
	return domain.Posting{
		Position: title,
		Location: loc,
		URL:      strings.TrimRight(t.Board.URL, "/") + "/" + o.ID.String(),
	}, nil
}
