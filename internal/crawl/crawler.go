// Package crawl walks a company's own site looking for links to ATS vendor
// boards.
package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/metrics"
	"jobglob-engine/internal/vendor"
)

const DefaultWorkers = 3

var DefaultCareerStubs = []string{
	"career", "job", "join", "hiring", "opening", "opportunit", "work-with-us", "work-for-us", "vacanc", "team",
}

var ErrAlreadyRun = errors.New("crawl: crawler already used")

type State int32

const (
	Idle State = iota
	Running
	Completed
	LimitExceeded
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case LimitExceeded:
		return "limit_exceeded"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for st := Idle; st <= Cancelled; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("crawl: unknown state %q", b)
}

// Options for a single crawl. Zero limits mean unlimited.
type Options struct {
	StartURL      string
	MaxDepth      int
	MaxDuration   time.Duration
	MaxHits       int
	Workers       int
	CareerStubs   []string
	RespectRobots bool
	Metrics       *metrics.Metrics
}

type Result struct {
	RunID        string              `json:"run_id"`
	StartURL     string              `json:"start_url"`
	State        State               `json:"state"`
	Limit        string              `json:"limit,omitempty"`
	Boards       []string            `json:"boards"`
	WeakSignals  map[string][]string `json:"weak_signals"`
	PagesVisited int                 `json:"pages_visited"`
	Duration     time.Duration       `json:"duration"`
}

// Crawler runs one crawl. Create a new Crawler per run.
type Crawler struct {
	opts   Options
	table  *vendor.Table
	client *fetch.Client
	robots *RobotsChecker
	state  atomic.Int32
	log    zerolog.Logger
}

func New(table *vendor.Table, client *fetch.Client, opts Options) *Crawler {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.CareerStubs == nil {
		opts.CareerStubs = DefaultCareerStubs
	}
	c := &Crawler{
		opts:   opts,
		table:  table,
		client: client,
		log:    logging.Component("crawl"),
	}
	if opts.RespectRobots {
		c.robots = NewRobotsChecker(client)
	}
	return c
}

func (c *Crawler) State() State { return State(c.state.Load()) }

type pageResult struct {
	url    string
	links  pageLinks
	weak   []string
	err    error
	denied bool
}

// Run crawls until the frontier drains, a limit trips or ctx is cancelled.
// Workers are always stopped and awaited before Run returns.
func (c *Crawler) Run(ctx context.Context) (Result, error) {
	start, err := url.Parse(strings.TrimSpace(c.opts.StartURL))
	if err != nil || (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return Result{}, fmt.Errorf("crawl: invalid start url %q", c.opts.StartURL)
	}
	if !c.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return Result{}, ErrAlreadyRun
	}

	runID := uuid.NewString()
	log := c.log.With().Str("run_id", runID).Str("start", start.String()).Logger()
	began := time.Now()
	s := newSite(start)

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	jobs := make(chan string)
	results := make(chan pageResult)
	var wg sync.WaitGroup
	for i := 0; i < c.opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.worker(workCtx, id, s, jobs, results)
		}(i)
	}

	var fr frontier
	known := mapset.NewThreadUnsafeSet[string]()
	boards := mapset.NewThreadUnsafeSet[string]()
	weak := map[string]mapset.Set[string]{}

	first := canonicalizeURL(start)
	known.Add(first)
	fr.pushFront(first)

	var deadline <-chan time.Time
	if c.opts.MaxDuration > 0 {
		timer := time.NewTimer(c.opts.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	inflight, dispatched, completed, visited := 0, 0, 0, 0
	final, limit := Completed, ""

	log.Info().Int("workers", c.opts.Workers).Msg("crawl started")

loop:
	for {
		if ctx.Err() != nil {
			final = Cancelled
			break
		}
		if l := c.limitReached(began, completed, boards.Cardinality()); l != "" {
			final, limit = LimitExceeded, l
			break
		}
		if fr.len() == 0 && inflight == 0 {
			final = Completed
			break
		}

		var out chan<- string
		var next string
		if fr.len() > 0 && inflight < c.opts.Workers && (c.opts.MaxDepth <= 0 || dispatched < c.opts.MaxDepth) {
			next, out = fr.peek(), jobs
		}

		select {
		case <-ctx.Done():
			final = Cancelled
			break loop
		case <-deadline:
			final, limit = LimitExceeded, "duration"
			break loop
		case out <- next:
			fr.popFront()
			inflight++
			dispatched++
		case res := <-results:
			inflight--
			completed++
			if !res.denied {
				visited++
			}
			c.merge(log, res, &fr, known, boards, weak)
		}
	}

	c.state.Store(int32(final))

	// Stop workers and wait for every in-flight fetch to return.
	cancelWork()
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()
	dropped := 0
	for range results {
		dropped++
	}

	out := Result{
		RunID:        runID,
		StartURL:     start.String(),
		State:        final,
		Limit:        limit,
		Boards:       boards.ToSlice(),
		WeakSignals:  make(map[string][]string, len(weak)),
		PagesVisited: visited,
		Duration:     time.Since(began),
	}
	sort.Strings(out.Boards)
	for page, chunks := range weak {
		cs := chunks.ToSlice()
		sort.Strings(cs)
		out.WeakSignals[page] = cs
	}

	c.opts.Metrics.CrawlFinished(final.String())
	log.Info().
		Str("state", final.String()).
		Str("limit", limit).
		Int("pages", visited).
		Int("boards", len(out.Boards)).
		Int("weak_signals", len(out.WeakSignals)).
		Int("dropped", dropped).
		Dur("took", out.Duration).
		Msg("crawl finished")
	return out, nil
}

func (c *Crawler) limitReached(began time.Time, completed, hits int) string {
	switch {
	case c.opts.MaxDepth > 0 && completed >= c.opts.MaxDepth:
		return "depth"
	case c.opts.MaxHits > 0 && hits >= c.opts.MaxHits:
		return "hits"
	case c.opts.MaxDuration > 0 && time.Since(began) >= c.opts.MaxDuration:
		return "duration"
	}
	return ""
}

func (c *Crawler) merge(log zerolog.Logger, res pageResult, fr *frontier, known, boards mapset.Set[string], weak map[string]mapset.Set[string]) {
	if res.denied {
		c.opts.Metrics.RobotsBlock()
		return
	}
	c.opts.Metrics.PageFetched(res.err == nil)
	if res.err != nil {
		log.Debug().Err(res.err).Str("url", res.url).Msg("page skipped")
		return
	}

	for _, p := range res.links.pages {
		if known.Add(p) {
			fr.push(p, isCareerPage(p, c.opts.CareerStubs))
		}
	}
	for _, b := range res.links.boards {
		if c.opts.MaxHits > 0 && boards.Cardinality() >= c.opts.MaxHits {
			break
		}
		if boards.Add(b) {
			c.opts.Metrics.BoardFound()
			log.Info().Str("board", b).Str("page", res.url).Msg("board found")
		}
	}
	if len(res.links.boards) == 0 && len(res.weak) > 0 {
		set, ok := weak[res.url]
		if !ok {
			set = mapset.NewThreadUnsafeSet[string]()
			weak[res.url] = set
		}
		set.Append(res.weak...)
	}
}

func (c *Crawler) worker(ctx context.Context, id int, s site, jobs <-chan string, results chan<- pageResult) {
	for u := range jobs {
		if ctx.Err() != nil {
			results <- pageResult{url: u, err: ctx.Err()}
			continue
		}
		res := c.visit(ctx, s, u)
		if res.err != nil {
			c.log.Debug().Int("worker_id", id).Err(res.err).Str("url", u).Msg("fetch failed")
		}
		results <- res
	}
}

func (c *Crawler) visit(ctx context.Context, s site, pageURL string) pageResult {
	if c.robots != nil && !c.robots.Allowed(ctx, pageURL) {
		return pageResult{url: pageURL, denied: true}
	}

	res, err := c.client.Get(ctx, pageURL)
	if err != nil {
		return pageResult{url: pageURL, err: err}
	}
	if !res.OK() {
		return pageResult{url: pageURL, err: &fetch.StatusError{Status: res.Status, URL: pageURL}}
	}

	// A careers link that redirects straight to a vendor board is a hit too.
	if final, err := url.Parse(res.FinalURL); err == nil && !s.contains(final) {
		if _, ok := c.table.Match(res.FinalURL); ok {
			return pageResult{url: pageURL, links: pageLinks{boards: []string{domain.NormalizeURL(c.table.Fixup(res.FinalURL))}}}
		}
		return pageResult{url: pageURL}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return pageResult{url: pageURL, err: fmt.Errorf("parse html: %w", err)}
	}
	base, err := url.Parse(res.FinalURL)
	if err != nil {
		return pageResult{url: pageURL, err: err}
	}

	out := pageResult{url: pageURL, links: extractLinks(doc, base, s, c.table)}
	if len(out.links.boards) == 0 {
		body := strings.ToLower(res.Text())
		for _, ch := range c.table.Chunks() {
			if strings.Contains(body, strings.ToLower(ch.Chunk)) {
				out.weak = append(out.weak, ch.Chunk)
			}
		}
	}
	return out
}
