package scheduler

import (
	"context"
	"time"

	"jobglob-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on every tick until ctx is done.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	EveryInWindow(ctx, interval, name, nil, task)
}

// EveryInWindow is Every, but ticks that fall outside window are skipped.
// A nil window always runs.
func EveryInWindow(ctx context.Context, interval time.Duration, name string, window *Window, task Task) {
	log := logging.Component("scheduler").With().Str("task", name).Logger()

	run := func() {
		if !window.Contains(time.Now()) {
			log.Debug().Msg("outside window, skipped")
			return
		}
		if err := task(ctx); err != nil {
			log.Error().Err(err).Msg("task failed")
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	// run immediately
	run()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

// Window is a daily [Start, End) range of local hours.
type Window struct {
	Start        int
	End          int
	WeekdaysOnly bool
}

func (w *Window) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	if w.WeekdaysOnly {
		if d := t.Weekday(); d == time.Saturday || d == time.Sunday {
			return false
		}
	}
	h := t.Hour()
	return h >= w.Start && h < w.End
}

// Next returns the first instant at or after t that is inside the window.
func (w *Window) Next(t time.Time) time.Time {
	if w == nil || w.Contains(t) {
		return t
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), w.Start, 0, 0, 0, t.Location())
	if !day.After(t) {
		day = day.AddDate(0, 0, 1)
	}
	for i := 0; i < 7 && !w.Contains(day); i++ {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
