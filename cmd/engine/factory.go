package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"jobglob-engine/internal/classify"
	"jobglob-engine/internal/config"
	"jobglob-engine/internal/crawl"
	"jobglob-engine/internal/discover"
	"jobglob-engine/internal/events"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/metrics"
	"jobglob-engine/internal/poll"
	"jobglob-engine/internal/reconcile"
	"jobglob-engine/internal/scrape"
	"jobglob-engine/internal/store"
	"jobglob-engine/internal/vendor"
)

// engine holds every long-lived component, wired from one config.
type engine struct {
	cfg     config.Config
	dataDir string

	db      *store.DB
	table   *vendor.Table
	client  *fetch.Client
	metrics *metrics.Metrics
	hub     *events.Hub

	classifier *classify.Classifier
	discover   *discover.Discoverer
	poller     *poll.Runner
}

func newEngine(o *rootOptions) (*engine, error) {
	cfg := o.cfg

	table := vendor.Default()
	if cfg.VendorsPath != "" {
		t, err := vendor.Load(cfg.VendorsPath)
		if err != nil {
			return nil, fmt.Errorf("vendor table: %w", err)
		}
		table = t
	}

	db, err := store.Open(filepath.Join(o.dataDir, "jobglob.db"))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	hub := events.NewHub()

	client := fetch.New(fetch.Options{
		Timeout:    cfg.FetchTimeout(),
		UserAgents: cfg.Fetch.UserAgents,
		Limiter:    fetch.NewHostLimiter(cfg.Fetch.RatePerSecond, cfg.Fetch.Burst),
	})

	e := &engine{
		cfg:     cfg,
		dataDir: o.dataDir,
		db:      db,
		table:   table,
		client:  client,
		metrics: m,
		hub:     hub,
	}
	e.classifier = classify.New(table, client, classify.Options{
		Concurrency: cfg.Classifier.Concurrency,
		Metrics:     m,
	})
	e.discover = discover.New(table, client, e.classifier,
		discover.NewHomepageFinder(client, db, table, ""),
		e.crawlOptions(""))
	e.poller = poll.New(db, scrape.New(table, client, nil), reconcile.New(db, m), client, poll.Options{
		Concurrency:  cfg.Polling.Concurrency,
		BoardTimeout: cfg.BoardTimeout(),
		StaleAfter:   cfg.StaleAfter(),
		Metrics:      m,
		Hub:          hub,
	})
	return e, nil
}

func (e *engine) crawlOptions(startURL string) crawl.Options {
	c := e.cfg.Crawler
	return crawl.Options{
		StartURL:      startURL,
		MaxDepth:      c.MaxDepth,
		MaxDuration:   e.cfg.CrawlDuration(),
		MaxHits:       c.MaxHits,
		Workers:       c.Workers,
		CareerStubs:   c.CareerStubs,
		RespectRobots: c.RespectRobots,
		Metrics:       e.metrics,
	}
}

// crawl runs one fresh crawler; crawlers are single use.
func (e *engine) crawl(ctx context.Context, startURL string) (crawl.Result, error) {
	return crawl.New(e.table, e.client, e.crawlOptions(startURL)).Run(ctx)
}

func (e *engine) Close() error {
	return e.db.Close()
}
