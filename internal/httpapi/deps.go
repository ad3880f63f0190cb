package httpapi

import (
	"context"
	"sync/atomic"

	"jobglob-engine/internal/classify"
	"jobglob-engine/internal/config"
	"jobglob-engine/internal/crawl"
	"jobglob-engine/internal/discover"
	"jobglob-engine/internal/events"
	"jobglob-engine/internal/metrics"
	"jobglob-engine/internal/poll"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/store"
	"jobglob-engine/internal/vendor"
)

// Poller is the slice of *poll.Runner the API drives.
type Poller interface {
	RunOnce(ctx context.Context) (poll.Summary, error)
	CheckListings(ctx context.Context) (poll.CheckSummary, error)
	Status() types.ScrapeStatus
}

type Discoverer interface {
	FindBoards(ctx context.Context, company, homepage string) (discover.Report, error)
}

type Prober interface {
	BruteForce(ctx context.Context, company string) []string
	FindBoardFromJobsPage(ctx context.Context, company, jobsPageURL string) (vendor.Type, []string)
}

type Deps struct {
	DB *store.DB

	Hub     *events.Hub
	Metrics *metrics.Metrics

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	Table    *vendor.Table
	Poller   Poller
	Discover Discoverer
	Prober   Prober

	// Crawl runs one site crawl; the handler owns nothing else about it.
	Crawl func(ctx context.Context, startURL string) (crawl.Result, error)

	// Background is the parent context for runs started over HTTP that must
	// outlive the request.
	Background context.Context
}

var (
	_ Poller     = (*poll.Runner)(nil)
	_ Discoverer = (*discover.Discoverer)(nil)
	_ Prober     = (*classify.Classifier)(nil)
)
