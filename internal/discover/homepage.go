package discover

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/vendor"
)

const DefaultSearchURL = "https://duckduckgo.com/html/"

var domainBlocklist = []string{
	"linkedin.com",
	"indeed.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"monster.com",
	"careerbuilder.com",
	"simplyhired.com",
	"builtin.com",
	"levels.fyi",
	"crunchbase.com",
	"wikipedia.org",
	"duckduckgo.com",

	// ATS / job boards
	"greenhouse.io",
	"lever.co",
	"myworkdayjobs.com",
	"workday.com",
	"smartrecruiters.com",
	"icims.com",
	"jobvite.com",
	"applytojob.com",
	"ashbyhq.com",
	"workable.com",
	"bamboohr.com",
}

// HomepageCache stores looked-up homepages keyed by company name.
type HomepageCache interface {
	GetCompanyDomain(ctx context.Context, company string) (string, error)
	UpsertCompanyDomain(ctx context.Context, company, domain string) error
}

// HomepageFinder looks up a company's own site through DuckDuckGo's HTML
// results, skipping job boards and aggregators.
type HomepageFinder struct {
	client    *fetch.Client
	cache     HomepageCache
	table     *vendor.Table
	searchURL string
	log       zerolog.Logger
}

func NewHomepageFinder(client *fetch.Client, cache HomepageCache, table *vendor.Table, searchURL string) *HomepageFinder {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &HomepageFinder{
		client:    client,
		cache:     cache,
		table:     table,
		searchURL: searchURL,
		log:       logging.Component("homepage"),
	}
}

// Find returns "https://<domain>" for company, or "" when nothing usable was
// found. Hits are cached; misses are not.
func (f *HomepageFinder) Find(ctx context.Context, company string) (string, error) {
	// 1) cached?
	if f.cache != nil {
		d, err := f.cache.GetCompanyDomain(ctx, company)
		if err != nil {
			return "", err
		}
		if d != "" {
			return "https://" + d, nil
		}
	}

	// 2) search
	found, err := f.search(ctx, company)
	if err != nil {
		return "", err
	}
	if found == "" {
		f.log.Info().Str("company", company).Msg("no homepage found")
		return "", nil
	}

	// 3) store
	if f.cache != nil {
		if err := f.cache.UpsertCompanyDomain(ctx, company, found); err != nil {
			return "", err
		}
	}
	f.log.Info().Str("company", company).Str("domain", found).Msg("homepage found")
	return "https://" + found, nil
}

func (f *HomepageFinder) search(ctx context.Context, company string) (string, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return "", nil
	}

	// Make query less noisy
	query := fmt.Sprintf("%s official website", sanitizeCompanyForSearch(company))
	u := f.searchURL + "?q=" + url.QueryEscape(query)

	res, err := f.client.Get(ctx, u)
	if err != nil {
		return "", fmt.Errorf("homepage search: %w", err)
	}
	if !res.OK() {
		return "", &fetch.StatusError{Status: res.Status, URL: u}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return "", fmt.Errorf("homepage search parse: %w", err)
	}

	var best string

	// DDG HTML results: <a class="result__a" href="...">
	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}

		host := hostFromURL(decodeDDGRedirect(href))
		if host == "" {
			return true
		}

		host = strings.ToLower(strings.TrimPrefix(host, "www."))
		if f.isBlocked(host) {
			return true
		}

		best = host
		return false // stop at first good domain
	})

	return best, nil
}

func decodeDDGRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	// DDG sometimes uses /l/?uddg=<urlencoded>
	if uddg := u.Query().Get("uddg"); uddg != "" {
		return uddg
	}
	return href
}

func hostFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func (f *HomepageFinder) isBlocked(host string) bool {
	for _, b := range domainBlocklist {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	if f.table != nil {
		if _, ok := f.table.Match(host); ok {
			return true
		}
	}
	return false
}

func sanitizeCompanyForSearch(s string) string {
	s = strings.TrimSpace(s)
	// remove common suffixes that confuse search
	repls := []string{
		", Inc.", "", " Inc.", "", " Inc", "",
		", LLC", "", " LLC", "",
		", Ltd.", "", " Ltd.", "", " Ltd", "",
		" Recruiting", "",
		" Staffing", "",
	}
	r := strings.NewReplacer(repls...)
	s = r.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
