// Package poll scrapes every active board and reconciles the results.
package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/events"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/metrics"
	"jobglob-engine/internal/reconcile"
	"jobglob-engine/internal/scrape/types"
)

var ErrRunning = errors.New("poll: a run is already in progress")

type Store interface {
	ActiveBoards(ctx context.Context) ([]domain.Board, error)
	AliveListings(ctx context.Context) ([]domain.Listing, error)
	MarkDead(ctx context.Context, listingID int64, at time.Time) error
	RecordOutcome(ctx context.Context, o domain.ScrapeOutcome) error
	RejectStaleApplications(ctx context.Context, cutoff, now time.Time) (int64, error)
}

type Scraper interface {
	Scrape(ctx context.Context, b domain.Board) types.Result
}

type Reconciler interface {
	Reconcile(ctx context.Context, companyID int64, snap domain.Snapshot) (reconcile.Result, error)
}

type Options struct {
	Concurrency  int
	BoardTimeout time.Duration
	// StaleAfter auto-rejects applications older than this; zero disables it.
	StaleAfter time.Duration
	Metrics    *metrics.Metrics
	Hub        *events.Hub
}

type Summary struct {
	RunID         string                         `json:"run_id"`
	Boards        int                            `json:"boards"`
	Added         int                            `json:"added"`
	Duplicates    int                            `json:"duplicates"`
	MarkedDead    int                            `json:"marked_dead"`
	Resurrected   int                            `json:"resurrected"`
	Outcomes      map[domain.OutcomeCategory]int `json:"outcomes"`
	StaleRejected int64                          `json:"stale_rejected"`
	Took          time.Duration                  `json:"took"`
}

type Runner struct {
	store   Store
	scraper Scraper
	rec     Reconciler
	client  *fetch.Client
	opts    Options
	log     zerolog.Logger
	now     func() time.Time

	running atomic.Bool
	status  atomic.Value // types.ScrapeStatus
}

func New(store Store, scraper Scraper, rec Reconciler, client *fetch.Client, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.BoardTimeout <= 0 {
		opts.BoardTimeout = time.Minute
	}
	r := &Runner{
		store:   store,
		scraper: scraper,
		rec:     rec,
		client:  client,
		opts:    opts,
		log:     logging.Component("poll"),
		now:     time.Now,
	}
	r.status.Store(types.ScrapeStatus{})
	return r
}

func (r *Runner) Status() types.ScrapeStatus {
	return r.status.Load().(types.ScrapeStatus)
}

func (r *Runner) updateStatus(fn func(*types.ScrapeStatus)) {
	st := r.Status()
	fn(&st)
	r.status.Store(st)
}

// RunOnce scrapes and reconciles every active board. It is best effort: one
// board failing never cancels the others.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, ErrRunning
	}
	defer r.running.Store(false)

	start := r.now()
	sum := Summary{RunID: uuid.NewString(), Outcomes: map[domain.OutcomeCategory]int{}}
	log := r.log.With().Str("run_id", sum.RunID).Logger()

	r.updateStatus(func(st *types.ScrapeStatus) {
		st.Running = true
		st.LastRunAt = start.Format(time.RFC3339)
		st.LastRunID = sum.RunID
	})
	r.opts.Hub.Emit(sum.RunID, events.PollStarted, nil)

	err := r.run(ctx, log, &sum)
	sum.Took = r.now().Sub(start)

	r.updateStatus(func(st *types.ScrapeStatus) {
		st.Running = false
		st.LastAdded = sum.Added
		st.LastDead = sum.MarkedDead
		st.Categories = make(map[string]int, len(sum.Outcomes))
		for c, n := range sum.Outcomes {
			st.Categories[string(c)] = n
		}
		if err != nil {
			st.LastError = err.Error()
			return
		}
		st.LastError = ""
		st.LastOkAt = r.now().Format(time.RFC3339)
	})
	r.opts.Hub.Emit(sum.RunID, events.PollFinished, sum)

	if err != nil {
		log.Error().Err(err).Msg("poll failed")
		return sum, err
	}
	log.Info().
		Int("boards", sum.Boards).
		Int("added", sum.Added).
		Int("marked_dead", sum.MarkedDead).
		Int("resurrected", sum.Resurrected).
		Dur("took", sum.Took).
		Msg("poll finished")
	return sum, nil
}

func (r *Runner) run(ctx context.Context, log zerolog.Logger, sum *Summary) error {
	if r.opts.StaleAfter > 0 {
		now := r.now()
		n, err := r.store.RejectStaleApplications(ctx, now.Add(-r.opts.StaleAfter), now)
		if err != nil {
			log.Error().Err(err).Msg("stale application sweep failed")
		} else if n > 0 {
			sum.StaleRejected = n
			log.Info().Int64("rejected", n).Msg("stale applications rejected")
			r.opts.Hub.Emit(sum.RunID, events.ApplicationsStaled, map[string]int64{"rejected": n})
		}
	}

	boards, err := r.store.ActiveBoards(ctx)
	if err != nil {
		return err
	}
	sum.Boards = len(boards)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, b := range boards {
		g.Go(func() error {
			res, out := r.pollBoard(gctx, log, sum.RunID, b)

			mu.Lock()
			defer mu.Unlock()
			sum.Outcomes[out.Category]++
			sum.Added += res.Added
			sum.Duplicates += res.Duplicates
			sum.MarkedDead += res.MarkedDead
			sum.Resurrected += res.Resurrected
			return nil // best-effort: don’t cancel siblings
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (r *Runner) pollBoard(ctx context.Context, log zerolog.Logger, runID string, b domain.Board) (reconcile.Result, domain.ScrapeOutcome) {
	bctx, cancel := context.WithTimeout(ctx, r.opts.BoardTimeout)
	sr := r.scraper.Scrape(bctx, b)
	cancel()

	out := sr.Outcome
	out.RunID = runID
	r.opts.Metrics.ScrapeOutcome(string(out.Category), sr.Took.Seconds())
	if err := r.store.RecordOutcome(ctx, out); err != nil {
		log.Error().Err(err).Int64("board_id", b.ID).Msg("record outcome failed")
	}
	r.opts.Hub.Emit(runID, events.BoardScraped, out)

	res, err := r.rec.Reconcile(ctx, b.CompanyID, sr.Snapshot)
	if err != nil {
		log.Error().Err(err).Str("company", b.Company).Msg("reconcile failed")
		return reconcile.Result{}, out
	}
	if res.Changed() {
		r.opts.Hub.Emit(runID, events.ListingsChanged, map[string]any{
			"company_id": b.CompanyID,
			"company":    b.Company,
			"result":     res,
		})
	}
	return res, out
}
