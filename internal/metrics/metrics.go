package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	reg prometheus.Gatherer

	// Crawler
	PagesFetched  *prometheus.CounterVec
	BoardsFound   prometheus.Counter
	RobotsBlocked prometheus.Counter
	CrawlRuns     *prometheus.CounterVec

	// Classifier
	CandidatesChecked *prometheus.CounterVec

	// Poller / reconciliation
	ScrapeOutcomes *prometheus.CounterVec
	ListingChanges *prometheus.CounterVec
	ScrapeDuration prometheus.Histogram
}

func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		PagesFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobglob_crawler_pages_fetched_total",
				Help: "Pages fetched by the site crawler",
			},
			[]string{"result"},
		),
		BoardsFound: f.NewCounter(prometheus.CounterOpts{
			Name: "jobglob_crawler_boards_found_total",
			Help: "Distinct vendor board URLs confirmed by the crawler",
		}),
		RobotsBlocked: f.NewCounter(prometheus.CounterOpts{
			Name: "jobglob_crawler_robots_blocked_total",
			Help: "Pages skipped because robots.txt disallowed them",
		}),
		CrawlRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobglob_crawler_runs_total",
				Help: "Crawl runs by terminal state",
			},
			[]string{"state"},
		),
		CandidatesChecked: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobglob_classifier_candidates_total",
				Help: "Candidate board URLs probed",
			},
			[]string{"valid"},
		),
		ScrapeOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobglob_scrape_outcomes_total",
				Help: "Board scrapes by outcome category",
			},
			[]string{"category"},
		),
		ListingChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobglob_listing_changes_total",
				Help: "Listing mutations applied by reconciliation",
			},
			[]string{"action"},
		),
		ScrapeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobglob_scrape_duration_seconds",
			Help:    "Time taken to scrape and reconcile one board",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) PageFetched(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.PagesFetched.WithLabelValues(result).Inc()
}

func (m *Metrics) BoardFound() {
	if m == nil {
		return
	}
	m.BoardsFound.Inc()
}

func (m *Metrics) RobotsBlock() {
	if m == nil {
		return
	}
	m.RobotsBlocked.Inc()
}

func (m *Metrics) CrawlFinished(state string) {
	if m == nil {
		return
	}
	m.CrawlRuns.WithLabelValues(state).Inc()
}

func (m *Metrics) CandidateChecked(valid bool) {
	if m == nil {
		return
	}
	label := "false"
	if valid {
		label = "true"
	}
	m.CandidatesChecked.WithLabelValues(label).Inc()
}

func (m *Metrics) ScrapeOutcome(category string, seconds float64) {
	if m == nil {
		return
	}
	m.ScrapeOutcomes.WithLabelValues(category).Inc()
	m.ScrapeDuration.Observe(seconds)
}

func (m *Metrics) ListingChange(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ListingChanges.WithLabelValues(action).Add(float64(n))
}
