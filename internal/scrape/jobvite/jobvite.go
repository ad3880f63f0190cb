package jobvite

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/scrape/util"
	"jobglob-engine/internal/vendor"
)

type row struct {
	Title    string
	Href     string
	Location string
}

// Adapter scrapes the board's HTML listing. HTML boards are never
// authoritative: a page with no rows may just be a layout change.
func Adapter() types.Adapter {
	return types.Adapter{
		Vendor: vendor.Jobvite,
		Fetch:  fetchBoard,
		Parse:  parse,
	}
}

func fetchBoard(ctx context.Context, c *fetch.Client, t types.Target) (types.Source, error) {
	res, err := c.Get(ctx, t.Board.URL)
	if err != nil {
		return types.Source{RequestURL: t.Board.URL}, fmt.Errorf("jobvite get: %w", err)
	}
	src := types.Source{RequestURL: t.Board.URL, FinalURL: res.FinalURL, Status: res.Status}
	if !res.OK() {
		return src, &fetch.StatusError{Status: res.Status, URL: t.Board.URL}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return src, fmt.Errorf("jobvite parse html: %w", err)
	}
	base, err := url.Parse(res.FinalURL)
	if err != nil {
		return src, fmt.Errorf("jobvite final url: %w", err)
	}

	doc.Find("table.jv-job-list tr").Each(func(_ int, tr *goquery.Selection) {
		a := tr.Find("td.jv-job-list-name a").First()
		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		src.Items = append(src.Items, row{
			Title:    a.Text(),
			Href:     absolute(base, href),
			Location: tr.Find("td.jv-job-list-location").First().Text(),
		})
	})
	// some boards use a list layout instead of the table
	doc.Find("ul.jv-job-list li a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		src.Items = append(src.Items, row{
			Title:    a.Find(".jv-job-list-name").Text(),
			Href:     absolute(base, href),
			Location: a.Find(".jv-job-list-location").Text(),
		})
	})
	return src, nil
}

func absolute(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func parse(_ types.Target, item any) (domain.Posting, error) {
	r, ok := item.(row)
	if !ok {
		return domain.Posting{}, fmt.Errorf("jobvite: unexpected item %T", item)
	}
	p := domain.Posting{
		Position: util.CleanText(r.Title),
		Location: util.NormalizeLocation(r.Location),
		URL:      r.Href,
	}
	if p.Position == "" || p.URL == "" {
		return domain.Posting{}, fmt.Errorf("jobvite: row %q missing title or link", r.Title)
	}
	return p, nil
}
