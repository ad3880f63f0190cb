package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PageFetched(true)
		m.BoardFound()
		m.CrawlFinished("completed")
		m.CandidateChecked(false)
		m.ScrapeOutcome("ok", 1)
		m.ListingChange("added", 3)
	})
}

func TestRecordersAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ListingChange("added", 2)
	m.ListingChange("added", 0)
	m.ScrapeOutcome("no_listings", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListingChanges.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScrapeOutcomes.WithLabelValues("no_listings")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobglob_listing_changes_total")
}
