package poll_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/events"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/poll"
	"jobglob-engine/internal/reconcile"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/store"
)

type fakeScraper struct {
	mu    sync.Mutex
	snaps map[string]domain.Snapshot
	cats  map[string]domain.OutcomeCategory
	block chan struct{}
	calls int
}

func (f *fakeScraper) Scrape(ctx context.Context, b domain.Board) types.Result {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	cat, ok := f.cats[b.URL]
	if !ok {
		cat = domain.OutcomeOK
	}
	return types.Result{
		Snapshot: f.snaps[b.URL],
		Outcome: domain.ScrapeOutcome{
			BoardID:  b.ID,
			Company:  b.Company,
			BoardURL: b.URL,
			Category: cat,
			At:       time.Now(),
		},
	}
}

func openStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "poll.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedBoard(t *testing.T, db *store.DB, company, boardURL string, listings ...string) domain.Board {
	t.Helper()
	ctx := context.Background()
	c, err := db.AddCompany(ctx, company, "")
	require.NoError(t, err)
	b, err := db.AddBoard(ctx, c.ID, boardURL, "")
	require.NoError(t, err)
	for _, u := range listings {
		require.NoError(t, db.InsertListing(ctx, &domain.Listing{CompanyID: c.ID, Position: "Role", URL: u}))
	}
	return b
}

func TestRunOnce(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()

	acme := seedBoard(t, db, "Acme", "https://jobs.lever.co/acme", "https://jobs.lever.co/acme/old")
	beta := seedBoard(t, db, "Beta", "https://boards.greenhouse.io/beta", "https://boards.greenhouse.io/beta/jobs/9")

	listing, err := db.AliveListings(ctx)
	require.NoError(t, err)
	_, err = db.AddApplication(ctx, listing[0].ID, time.Now().AddDate(0, 0, -40))
	require.NoError(t, err)

	sc := &fakeScraper{
		snaps: map[string]domain.Snapshot{
			acme.URL: {Postings: []domain.Posting{
				{Position: "Engineer", URL: "https://jobs.lever.co/acme/1"},
				{Position: "Designer", URL: "https://jobs.lever.co/acme/2"},
			}},
			beta.URL: {HadParseFailures: true},
		},
		cats: map[string]domain.OutcomeCategory{beta.URL: domain.OutcomeNotFound},
	}
	hub := events.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	r := poll.New(db, sc, reconcile.New(db, nil), fetch.New(fetch.Options{}), poll.Options{
		Concurrency: 2,
		StaleAfter:  30 * 24 * time.Hour,
		Hub:         hub,
	})

	sum, err := r.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Boards)
	assert.Equal(t, 2, sum.Added)
	assert.Equal(t, 1, sum.MarkedDead)
	assert.Equal(t, int64(1), sum.StaleRejected)
	assert.Equal(t, map[domain.OutcomeCategory]int{domain.OutcomeOK: 1, domain.OutcomeNotFound: 1}, sum.Outcomes)
	assert.NotEmpty(t, sum.RunID)

	alive, err := db.AliveListings(ctx)
	require.NoError(t, err)
	var urls []string
	for _, l := range alive {
		urls = append(urls, l.URL)
	}
	assert.ElementsMatch(t, []string{
		"https://jobs.lever.co/acme/1",
		"https://jobs.lever.co/acme/2",
		"https://boards.greenhouse.io/beta/jobs/9",
	}, urls, "a failed board never marks its listings dead")

	outcomes, err := db.LatestOutcomes(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, sum.RunID, o.RunID)
	}

	st := r.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 2, st.LastAdded)
	assert.Equal(t, sum.RunID, st.LastRunID)
	assert.Empty(t, st.LastError)
	assert.NotEmpty(t, sub)
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	db := openStore(t)
	seedBoard(t, db, "Acme", "https://jobs.lever.co/acme")

	sc := &fakeScraper{block: make(chan struct{})}
	r := poll.New(db, sc, reconcile.New(db, nil), fetch.New(fetch.Options{}), poll.Options{})

	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return r.Status().Running }, time.Second, 5*time.Millisecond)

	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, poll.ErrRunning)

	close(sc.block)
	assert.NoError(t, <-done)
}

func TestRunOnceSecondBoardDoesNotFlipListings(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()

	old := seedBoard(t, db, "Acme", "https://jobs.lever.co/acme", "https://jobs.lever.co/acme/1")
	cur := seedBoard(t, db, "Acme", "https://jobs.ashbyhq.com/acme")

	sc := &fakeScraper{snaps: map[string]domain.Snapshot{
		old.URL: {Postings: []domain.Posting{{Position: "Engineer", URL: "https://jobs.lever.co/acme/1"}}},
		cur.URL: {Postings: []domain.Posting{{Position: "Engineer", URL: "https://jobs.ashbyhq.com/acme/9"}}},
	}}
	r := poll.New(db, sc, reconcile.New(db, nil), fetch.New(fetch.Options{}), poll.Options{Concurrency: 2})

	first, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Boards)
	assert.Equal(t, 1, first.Added)
	assert.Equal(t, 1, first.MarkedDead)

	for i := 0; i < 2; i++ {
		sum, err := r.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Boards)
		assert.Zero(t, sum.Added)
		assert.Zero(t, sum.MarkedDead)
		assert.Zero(t, sum.Resurrected)
	}

	alive, err := db.AliveListings(ctx)
	require.NoError(t, err)
	require.Len(t, alive, 1)
	assert.Equal(t, "https://jobs.ashbyhq.com/acme/9", alive[0].URL)
}

func TestCheckListings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/alive", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/gone", http.NotFound)
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/careers", http.StatusFound)
	})
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	db := openStore(t)
	seedBoard(t, db, "Acme", "https://jobs.lever.co/acme",
		srv.URL+"/alive", srv.URL+"/gone", srv.URL+"/moved", srv.URL+"/flaky")

	r := poll.New(db, &fakeScraper{}, reconcile.New(db, nil), fetch.New(fetch.Options{}), poll.Options{Concurrency: 2})
	sum, err := r.CheckListings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, poll.CheckSummary{Checked: 4, Alive: 1, Dead: 2, Unknown: 1}, sum)

	alive, err := db.AliveListings(context.Background())
	require.NoError(t, err)
	var urls []string
	for _, l := range alive {
		urls = append(urls, l.URL)
	}
	assert.ElementsMatch(t, []string{srv.URL + "/alive", srv.URL + "/flaky"}, urls)
}
