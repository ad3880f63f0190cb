// Package scrape turns one vendor board into a reconciliation snapshot and an
// outcome category for operator review.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/vendor"
)

type Scraper struct {
	table  *vendor.Table
	client *fetch.Client
	reg    *Registry
	log    zerolog.Logger
	now    func() time.Time
}

func New(table *vendor.Table, client *fetch.Client, reg *Registry) *Scraper {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Scraper{
		table:  table,
		client: client,
		reg:    reg,
		log:    logging.Component("scrape"),
		now:    time.Now,
	}
}

// VendorOf resolves the board's vendor, falling back to the URL table.
func (s *Scraper) VendorOf(b domain.Board) (vendor.Type, bool) {
	if b.Vendor != "" {
		return vendor.Type(b.Vendor), true
	}
	return s.table.Match(b.URL)
}

// Scrape fetches and parses one board. It never returns an error: every
// failure is folded into the snapshot flags and the outcome category.
func (s *Scraper) Scrape(ctx context.Context, b domain.Board) types.Result {
	start := s.now()
	out := domain.ScrapeOutcome{
		BoardID:  b.ID,
		Company:  b.Company,
		BoardURL: b.URL,
	}
	log := s.log.With().Str("company", b.Company).Str("board", b.URL).Logger()

	finish := func(snap domain.Snapshot, cat domain.OutcomeCategory, detail string) types.Result {
		out.Category, out.Detail, out.At = cat, detail, s.now()
		ev := log.Info()
		if cat != domain.OutcomeOK {
			ev = log.Warn()
		}
		ev.Str("category", string(cat)).
			Str("detail", detail).
			Int("postings", len(snap.Postings)).
			Bool("parse_failures", snap.HadParseFailures).
			Bool("confirmed_empty", snap.BoardConfirmedEmpty).
			Msg("board scraped")
		return types.Result{Snapshot: snap, Outcome: out, Took: s.now().Sub(start)}
	}

	v, ok := s.VendorOf(b)
	if !ok {
		return finish(domain.Snapshot{HadParseFailures: true}, domain.OutcomeMisc, "unknown vendor")
	}
	adapter, ok := s.reg.Get(v)
	if !ok {
		return finish(domain.Snapshot{HadParseFailures: true}, domain.OutcomeMisc, fmt.Sprintf("no adapter for %s", v))
	}
	target := types.Target{Board: b}
	if slug, ok := s.table.Slug(v, b.URL); ok {
		target.Slug = slug
	}
	log = log.With().Str("vendor", string(v)).Logger()

	src, err := adapter.Fetch(ctx, s.client, target)
	if err != nil {
		cat := domain.OutcomeMisc
		var se *fetch.StatusError
		switch {
		case src.Status == http.StatusNotFound || (errors.As(err, &se) && se.Status == http.StatusNotFound):
			cat = domain.OutcomeNotFound
		case errors.Is(err, types.ErrMalformed):
			cat = domain.OutcomeParseFail
		}
		// fetch-level failures gate dead-marking exactly like parse failures
		return finish(domain.Snapshot{HadParseFailures: true}, cat, err.Error())
	}

	snap := domain.Snapshot{}
	failures := 0
	var firstErr error
	for _, item := range src.Items {
		p, err := adapter.Parse(target, item)
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			log.Debug().Err(err).Msg("item parse failed")
			continue
		}
		p.URL = domain.NormalizeURL(p.URL)
		snap.Postings = append(snap.Postings, p)
	}
	// a truncated listing cannot prove anything missing is gone
	snap.HadParseFailures = failures > 0 || src.Partial
	snap.BoardConfirmedEmpty = src.Authoritative && len(src.Items) == 0

	switch {
	case failures > 0:
		return finish(snap, domain.OutcomeParseFail, fmt.Sprintf("%d of %d items failed: %v", failures, len(src.Items), firstErr))
	case src.Partial:
		return finish(snap, domain.OutcomeParseFail, fmt.Sprintf("listing truncated after %d items", len(src.Items)))
	case redirected(src):
		return finish(snap, domain.OutcomeRedirect, fmt.Sprintf("%s -> %s", src.RequestURL, src.FinalURL))
	case len(src.Items) == 0:
		return finish(snap, domain.OutcomeNoListings, "")
	}
	return finish(snap, domain.OutcomeOK, "")
}

func redirected(src types.Source) bool {
	if src.RequestURL == "" || src.FinalURL == "" {
		return false
	}
	return domain.NormalizeURL(src.RequestURL) != domain.NormalizeURL(src.FinalURL)
}
