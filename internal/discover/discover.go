// Package discover finds a company's vendor job boards: crawl its site first,
// then probe vendors hinted at by weak signals, then brute force every vendor.
package discover

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"

	"jobglob-engine/internal/classify"
	"jobglob-engine/internal/crawl"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/vendor"
)

type Method string

const (
	MethodCrawl      Method = "crawl"
	MethodWeakSignal Method = "weak_signal"
	MethodBruteForce Method = "brute_force"
	MethodNone       Method = "none"
)

type Report struct {
	Company     string              `json:"company"`
	Homepage    string              `json:"homepage,omitempty"`
	Method      Method              `json:"method"`
	Boards      []string            `json:"boards"`
	WeakSignals map[string][]string `json:"weak_signals,omitempty"`
	Crawl       *crawl.Result       `json:"crawl,omitempty"`
}

type Discoverer struct {
	table      *vendor.Table
	client     *fetch.Client
	classifier *classify.Classifier
	homepages  *HomepageFinder
	crawlOpts  crawl.Options
	log        zerolog.Logger
}

// New builds a Discoverer. homepages may be nil when callers always pass a
// homepage. crawlOpts.StartURL is ignored.
func New(table *vendor.Table, client *fetch.Client, classifier *classify.Classifier, homepages *HomepageFinder, crawlOpts crawl.Options) *Discoverer {
	return &Discoverer{
		table:      table,
		client:     client,
		classifier: classifier,
		homepages:  homepages,
		crawlOpts:  crawlOpts,
		log:        logging.Component("discover"),
	}
}

// FindBoards runs the discovery pipeline for one company. An empty homepage is
// looked up first; with no homepage at all it goes straight to brute force.
func (d *Discoverer) FindBoards(ctx context.Context, company, homepage string) (Report, error) {
	rep := Report{Company: company, Homepage: homepage, Method: MethodNone}
	log := d.log.With().Str("company", company).Logger()

	if rep.Homepage == "" && d.homepages != nil {
		hp, err := d.homepages.Find(ctx, company)
		if err != nil {
			log.Warn().Err(err).Msg("homepage lookup failed")
		}
		rep.Homepage = hp
	}

	if rep.Homepage != "" {
		opts := d.crawlOpts
		opts.StartURL = rep.Homepage
		res, err := crawl.New(d.table, d.client, opts).Run(ctx)
		if err != nil {
			log.Warn().Err(err).Str("homepage", rep.Homepage).Msg("crawl failed")
		} else {
			rep.Crawl = &res
			rep.WeakSignals = res.WeakSignals
			if len(res.Boards) > 0 {
				rep.Method, rep.Boards = MethodCrawl, res.Boards
				return rep, nil
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	if vendors := d.weakVendors(rep.WeakSignals); len(vendors) > 0 {
		var boards []string
		for _, v := range vendors {
			boards = append(boards, d.classifier.ValidateCandidates(ctx, v, d.classifier.GenerateCandidates(company, v))...)
		}
		if len(boards) > 0 {
			rep.Method, rep.Boards = MethodWeakSignal, boards
			return rep, nil
		}
	}

	if boards := d.classifier.BruteForce(ctx, company); len(boards) > 0 {
		rep.Method, rep.Boards = MethodBruteForce, boards
		return rep, nil
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	log.Info().Msg("no boards found")
	return rep, nil
}

func (d *Discoverer) weakVendors(weak map[string][]string) []vendor.Type {
	set := mapset.NewThreadUnsafeSet[vendor.Type]()
	for _, chunks := range weak {
		for _, ch := range chunks {
			if c, ok := d.table.MatchChunk(ch); ok {
				set.Add(c.Vendor)
			}
		}
	}
	out := set.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
