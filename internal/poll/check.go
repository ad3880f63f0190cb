package poll

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/events"
)

type CheckSummary struct {
	Checked int `json:"checked"`
	Alive   int `json:"alive"`
	Dead    int `json:"dead"`
	Unknown int `json:"unknown"`
}

type verdict int

const (
	verdictUnknown verdict = iota
	verdictAlive
	verdictDead
)

// CheckListings probes every alive listing's URL. A 200 that did not redirect
// keeps it alive; 404, 410 or a redirect marks it dead; anything else,
// including network errors, leaves it alone.
func (r *Runner) CheckListings(ctx context.Context) (CheckSummary, error) {
	listings, err := r.store.AliveListings(ctx)
	if err != nil {
		return CheckSummary{}, err
	}

	var (
		mu  sync.Mutex
		sum = CheckSummary{Checked: len(listings)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, l := range listings {
		g.Go(func() error {
			v := r.probe(gctx, l)
			if v == verdictDead {
				if err := r.store.MarkDead(gctx, l.ID, r.now()); err != nil {
					r.log.Error().Err(err).Int64("listing_id", l.ID).Msg("mark dead failed")
					v = verdictUnknown
				}
			}

			mu.Lock()
			defer mu.Unlock()
			switch v {
			case verdictAlive:
				sum.Alive++
			case verdictDead:
				sum.Dead++
			default:
				sum.Unknown++
			}
			return nil
		})
	}
	_ = g.Wait()

	r.opts.Metrics.ListingChange("checked_dead", sum.Dead)
	r.opts.Hub.Emit("", events.ListingsChecked, sum)
	r.log.Info().
		Int("checked", sum.Checked).
		Int("alive", sum.Alive).
		Int("dead", sum.Dead).
		Int("unknown", sum.Unknown).
		Msg("listings checked")
	return sum, ctx.Err()
}

func (r *Runner) probe(ctx context.Context, l domain.Listing) verdict {
	res, err := r.client.Get(ctx, l.URL)
	if err != nil {
		r.log.Debug().Err(err).Str("url", l.URL).Msg("listing probe failed")
		return verdictUnknown
	}
	switch {
	case res.Status == http.StatusOK && !res.Redirected():
		return verdictAlive
	case res.Status == http.StatusNotFound || res.Status == http.StatusGone || res.Redirected():
		return verdictDead
	}
	return verdictUnknown
}
