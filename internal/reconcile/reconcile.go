// Package reconcile diffs a fresh board snapshot against a company's listing
// history and applies inserts, dead-markings and resurrections.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/metrics"
)

// Gateway is the slice of the persistence layer reconciliation needs.
type Gateway interface {
	CompanyListings(ctx context.Context, companyID int64) ([]domain.Listing, error)
	// InsertListing returns domain.ErrDuplicateURL when the URL key exists.
	InsertListing(ctx context.Context, l *domain.Listing) error
	MarkDead(ctx context.Context, listingID int64, at time.Time) error
	Resurrect(ctx context.Context, listingID int64) error
}

// Transactor is implemented by gateways that can run one reconciliation
// inside a single transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Gateway) error) error
}

type Result struct {
	Added       int `json:"added"`
	Duplicates  int `json:"duplicates"`
	MarkedDead  int `json:"marked_dead"`
	Resurrected int `json:"resurrected"`
}

func (r Result) Changed() bool {
	return r.Added+r.MarkedDead+r.Resurrected > 0
}

type Engine struct {
	gw      Gateway
	metrics *metrics.Metrics
	now     func() time.Time
	log     zerolog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(gw Gateway, m *metrics.Metrics) *Engine {
	return &Engine{
		gw:      gw,
		metrics: m,
		now:     time.Now,
		log:     logging.Component("reconcile"),
		locks:   make(map[int64]*sync.Mutex),
	}
}

func (e *Engine) companyLock(companyID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[companyID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[companyID] = l
	}
	return l
}

// Reconcile applies snap to the company's listings. Reconciliations of the
// same company are serialized; different companies run concurrently.
func (e *Engine) Reconcile(ctx context.Context, companyID int64, snap domain.Snapshot) (Result, error) {
	lock := e.companyLock(companyID)
	lock.Lock()
	defer lock.Unlock()

	var res Result
	run := func(gw Gateway) error {
		r, err := e.apply(ctx, gw, companyID, snap)
		res = r
		return err
	}

	var err error
	if tx, ok := e.gw.(Transactor); ok {
		err = tx.WithinTx(ctx, run)
	} else {
		err = run(e.gw)
	}
	if err != nil {
		return Result{}, err
	}

	e.log.Info().
		Int64("company_id", companyID).
		Int("added", res.Added).
		Int("duplicates", res.Duplicates).
		Int("marked_dead", res.MarkedDead).
		Int("resurrected", res.Resurrected).
		Msg("reconciled")
	e.metrics.ListingChange("added", res.Added)
	e.metrics.ListingChange("dead", res.MarkedDead)
	e.metrics.ListingChange("resurrected", res.Resurrected)
	return res, nil
}

func (e *Engine) apply(ctx context.Context, gw Gateway, companyID int64, snap domain.Snapshot) (Result, error) {
	var res Result

	existing, err := gw.CompanyListings(ctx, companyID)
	if err != nil {
		return res, fmt.Errorf("load listings: %w", err)
	}
	byKey := make(map[string]domain.Listing, len(existing))
	for _, l := range existing {
		byKey[domain.URLKey(l.URL)] = l
	}

	parseFailures := snap.HadParseFailures
	fresh := make(map[string]struct{}, len(snap.Postings))
	var inserts []domain.Posting
	for _, p := range snap.Postings {
		key := domain.URLKey(p.URL)
		if key == "" {
			parseFailures = true
			continue
		}
		if _, seen := fresh[key]; seen {
			res.Duplicates++
			continue
		}
		fresh[key] = struct{}{}
		if _, ok := byKey[key]; !ok {
			inserts = append(inserts, p)
		}
	}

	now := e.now()

	for _, p := range inserts {
		l := &domain.Listing{
			CompanyID: companyID,
			Position:  p.Position,
			Location:  p.Location,
			URL:       p.URL,
			CreatedAt: now,
		}
		err := gw.InsertListing(ctx, l)
		switch {
		case errors.Is(err, domain.ErrDuplicateURL):
			res.Duplicates++
		case err != nil:
			return res, fmt.Errorf("insert %s: %w", p.URL, err)
		default:
			res.Added++
		}
	}

	if canMarkDead(parseFailures, len(fresh), snap.BoardConfirmedEmpty) {
		for key, l := range byKey {
			if !l.Alive {
				continue
			}
			if _, ok := fresh[key]; ok {
				continue
			}
			if err := gw.MarkDead(ctx, l.ID, now); err != nil {
				return res, fmt.Errorf("mark dead %d: %w", l.ID, err)
			}
			res.MarkedDead++
		}
	} else if len(byKey) > 0 {
		e.log.Debug().
			Int64("company_id", companyID).
			Bool("parse_failures", parseFailures).
			Int("fresh", len(fresh)).
			Msg("dead-marking skipped")
	}

	for key := range fresh {
		l, ok := byKey[key]
		if !ok || l.Alive {
			continue
		}
		if err := gw.Resurrect(ctx, l.ID); err != nil {
			return res, fmt.Errorf("resurrect %d: %w", l.ID, err)
		}
		res.Resurrected++
	}

	return res, nil
}

// canMarkDead: an incomplete or unconfirmed-empty scrape never kills listings.
func canMarkDead(parseFailures bool, fresh int, confirmedEmpty bool) bool {
	if parseFailures {
		return false
	}
	return fresh > 0 || confirmedEmpty
}
