// Package classify works out which ATS vendor hosts a company's job board,
// from page content or by probing name-derived board URLs.
package classify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/metrics"
	"jobglob-engine/internal/vendor"
)

const defaultConcurrency = 8

type Classifier struct {
	table       *vendor.Table
	client      *fetch.Client
	metrics     *metrics.Metrics
	concurrency int
	log         zerolog.Logger
}

type Options struct {
	// Concurrency bounds in-flight probes per validation batch.
	Concurrency int
	Metrics     *metrics.Metrics
}

func New(table *vendor.Table, client *fetch.Client, opts Options) *Classifier {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Classifier{
		table:       table,
		client:      client,
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
		log:         logging.Component("classify"),
	}
}

func (c *Classifier) ClassifyByText(body string) (vendor.Type, bool) {
	return c.table.Match(body)
}

// ClassifyByPage never fails: an unreachable page is simply unclassified.
func (c *Classifier) ClassifyByPage(ctx context.Context, pageURL string) (vendor.Type, bool) {
	res, err := c.client.Get(ctx, pageURL)
	if err != nil {
		c.log.Debug().Err(err).Str("url", pageURL).Msg("classify fetch failed")
		return "", false
	}
	if !res.OK() {
		c.log.Debug().Int("status", res.Status).Str("url", pageURL).Msg("classify non-2xx")
		return "", false
	}
	return c.ClassifyByText(res.Text())
}

// GenerateCandidates expands company into v's template.
func (c *Classifier) GenerateCandidates(company string, v vendor.Type) []string {
	tmpl, ok := c.table.Template(v)
	if !ok {
		return nil
	}
	return GenerateCandidates(company, tmpl)
}

// ValidateCandidates probes every URL and keeps those that answer 200 without
// redirecting. Failures of single probes are dropped.
func (c *Classifier) ValidateCandidates(ctx context.Context, v vendor.Type, urls []string) []string {
	marker := c.table.NotFoundMarker(v)
	valid := make([]bool, len(urls))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			valid[i] = c.probe(ctx, u, marker)
			c.metrics.CandidateChecked(valid[i])
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for i, ok := range valid {
		if ok {
			out = append(out, urls[i])
		}
	}
	return foldCase(out)
}

func (c *Classifier) probe(ctx context.Context, u, marker string) bool {
	res, err := c.client.Get(ctx, u)
	if err != nil {
		c.log.Debug().Err(err).Str("url", u).Msg("candidate failed")
		return false
	}
	if res.Status != 200 || res.Redirected() {
		return false
	}
	if marker != "" && strings.Contains(res.Text(), marker) {
		return false
	}
	return true
}

// foldCase collapses exactly two results that differ only by case.
func foldCase(urls []string) []string {
	if len(urls) == 2 && strings.EqualFold(urls[0], urls[1]) {
		return []string{strings.ToLower(urls[0])}
	}
	return urls
}

// BruteForce tries every known vendor template for company, one task per vendor.
func (c *Classifier) BruteForce(ctx context.Context, company string) []string {
	vendors := c.table.Vendors()
	found := make([][]string, len(vendors))

	var g errgroup.Group
	for i, v := range vendors {
		g.Go(func() error {
			found[i] = c.ValidateCandidates(ctx, v, c.GenerateCandidates(company, v))
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for i, urls := range found {
		if len(urls) > 0 {
			c.log.Info().Str("company", company).Str("vendor", string(vendors[i])).Strs("boards", urls).Msg("brute force hit")
		}
		out = append(out, urls...)
	}
	return out
}

// FindBoardFromJobsPage classifies a company's own jobs page and then probes
// that vendor's candidates for the company.
func (c *Classifier) FindBoardFromJobsPage(ctx context.Context, company, jobsPageURL string) (vendor.Type, []string) {
	v, ok := c.ClassifyByPage(ctx, jobsPageURL)
	if !ok {
		return "", nil
	}
	return v, c.ValidateCandidates(ctx, v, c.GenerateCandidates(company, v))
}

// VendorOf classifies a board URL by the vendor table alone.
func (c *Classifier) VendorOf(boardURL string) (vendor.Type, bool) {
	return c.table.Match(domain.NormalizeURL(boardURL))
}
