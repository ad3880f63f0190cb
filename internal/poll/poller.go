package poll

import (
	"context"
	"errors"
	"sync/atomic"

	"jobglob-engine/internal/config"
	"jobglob-engine/internal/scheduler"
)

// StartPoller runs RunOnce on the configured interval inside business hours.
// cfgVal holds a config.Config and is re-read on every tick so toggling
// polling.enabled takes effect without a restart.
func StartPoller(ctx context.Context, r *Runner, cfgVal *atomic.Value) {
	cfg := cfgVal.Load().(config.Config)
	bh := cfg.Polling.BusinessHours
	window := &scheduler.Window{Start: bh.Start, End: bh.End, WeekdaysOnly: bh.WeekdaysOnly}

	go scheduler.EveryInWindow(ctx, cfg.PollInterval(), "poll", window, func(ctx context.Context) error {
		if !cfgVal.Load().(config.Config).Polling.Enabled {
			return nil
		}
		_, err := r.RunOnce(ctx)
		if errors.Is(err, ErrRunning) {
			return nil
		}
		return err
	})
}
