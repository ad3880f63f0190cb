package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobglob-engine/internal/config"
	"jobglob-engine/internal/crawl"
	"jobglob-engine/internal/discover"
	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/events"
	"jobglob-engine/internal/poll"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/store"
	"jobglob-engine/internal/vendor"
)

type fakePoller struct {
	mu      sync.Mutex
	runs    int
	running bool
}

func (f *fakePoller) RunOnce(context.Context) (poll.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return poll.Summary{RunID: "run-1"}, nil
}

func (f *fakePoller) CheckListings(context.Context) (poll.CheckSummary, error) {
	return poll.CheckSummary{Checked: 2, Alive: 1, Dead: 1}, nil
}

func (f *fakePoller) Status() types.ScrapeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.ScrapeStatus{Running: f.running, LastRunID: "run-1"}
}

func (f *fakePoller) Runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeDiscoverer struct{ boards []string }

func (f fakeDiscoverer) FindBoards(_ context.Context, company, homepage string) (discover.Report, error) {
	return discover.Report{Company: company, Homepage: homepage, Method: discover.MethodCrawl, Boards: f.boards}, nil
}

type fakeProber struct{}

func (fakeProber) BruteForce(_ context.Context, company string) []string {
	return []string{"https://jobs.ashbyhq.com/" + company}
}

func (fakeProber) FindBoardFromJobsPage(_ context.Context, company, _ string) (vendor.Type, []string) {
	return vendor.Greenhouse, []string{"https://boards.greenhouse.io/" + company}
}

type testAPI struct {
	srv    *httptest.Server
	db     *store.DB
	poller *fakePoller
	cfgVal *atomic.Value
	hub    *events.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfgPath := filepath.Join(dir, "config.yml")
	require.NoError(t, config.SaveAtomic(cfgPath, config.Default()))
	cfgVal := &atomic.Value{}
	cfgVal.Store(config.Default())

	api := &testAPI{db: db, poller: &fakePoller{}, cfgVal: cfgVal, hub: events.NewHub()}
	mux := NewMux(Deps{
		DB:          db,
		Hub:         api.hub,
		CfgVal:      cfgVal,
		UserCfgPath: cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(cfgPath) },
		Table:       vendor.Default(),
		Poller:      api.poller,
		Discover:    fakeDiscoverer{boards: []string{"https://jobs.lever.co/acme"}},
		Prober:      fakeProber{},
		Crawl: func(_ context.Context, startURL string) (crawl.Result, error) {
			if startURL == "" {
				return crawl.Result{}, errors.New("start url is required")
			}
			return crawl.Result{StartURL: startURL, State: crawl.Completed, Boards: []string{}}, nil
		},
		Background: context.Background(),
	})
	api.srv = httptest.NewServer(Handler(mux))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func TestHealthAndMiddleware(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))

	res = api.do(t, http.MethodDelete, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	apiErr := decode[APIError](t, res)
	assert.Equal(t, "method_not_allowed", apiErr.Error.Code)
	assert.Equal(t, res.Header.Get("X-Request-ID"), apiErr.Error.RequestID)
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/companies", CompanyRequest{Name: "Acme", Homepage: "https://acme.test"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	c := decode[domain.Company](t, res)
	assert.Equal(t, "Acme", c.Name)

	res = api.do(t, http.MethodPost, "/boards", BoardRequest{Company: "Acme", URL: "https://jobs.lever.co/acme/"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	b := decode[domain.Board](t, res)
	assert.Equal(t, "lever", b.Vendor)
	assert.Equal(t, c.ID, b.CompanyID)
	assert.True(t, b.Active)

	res = api.do(t, http.MethodPost, "/boards", BoardRequest{Company: "Acme", URL: "https://acme.test/careers"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "unknown_vendor", decode[APIError](t, res).Error.Code)

	res = api.do(t, http.MethodPost, "/boards/"+itoa(b.ID)+"/active", ActiveRequest{Active: false})
	require.Equal(t, http.StatusOK, res.StatusCode)
	active, err := api.db.ActiveBoards(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)

	res = api.do(t, http.MethodPost, "/boards/999/active", ActiveRequest{Active: true})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = api.do(t, http.MethodGet, "/companies", nil)
	assert.Len(t, decode[[]domain.Company](t, res), 1)
}

func seedListings(t *testing.T, db *store.DB) (domain.Company, []domain.Listing) {
	t.Helper()
	ctx := context.Background()
	c, err := db.AddCompany(ctx, "Acme", "")
	require.NoError(t, err)
	var out []domain.Listing
	for _, p := range []string{"Senior Engineer", "Engineer", "Designer"} {
		l := domain.Listing{CompanyID: c.ID, Position: p, Location: "Remote", URL: "https://jobs.lever.co/acme/" + p}
		require.NoError(t, db.InsertListing(ctx, &l))
		out = append(out, l)
	}
	require.NoError(t, db.MarkDead(ctx, out[2].ID, time.Now()))
	return c, out
}

func TestListListings(t *testing.T) {
	api := newTestAPI(t)
	c, _ := seedListings(t, api.db)

	cfg := config.Default()
	cfg.Peruse.PositionFilters = []string{"senior"}
	api.cfgVal.Store(cfg)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?alive=1", 2},
		{"?alive=0", 1},
		{"?alive=1&filtered=1", 1},
		{"?company_id=" + itoa(c.ID), 3},
		{"?company_id=" + itoa(c.ID+1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := api.do(t, http.MethodGet, "/listings"+tt.query, nil)
			require.Equal(t, http.StatusOK, res.StatusCode)
			assert.Len(t, decode[[]domain.Listing](t, res), tt.want)
		})
	}

	res := api.do(t, http.MethodGet, "/listings?company_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDeleteListing(t *testing.T) {
	api := newTestAPI(t)
	_, ls := seedListings(t, api.db)

	res := api.do(t, http.MethodDelete, "/listings/"+itoa(ls[0].ID), nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = api.do(t, http.MethodDelete, "/listings/"+itoa(ls[0].ID), nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = api.do(t, http.MethodDelete, "/listings/nope", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestApplications(t *testing.T) {
	api := newTestAPI(t)
	_, ls := seedListings(t, api.db)

	res := api.do(t, http.MethodPost, "/applications", ApplicationRequest{ListingID: ls[1].ID})
	require.Equal(t, http.StatusOK, res.StatusCode)
	app := decode[domain.Application](t, res)
	assert.Equal(t, ls[1].ID, app.ListingID)

	res = api.do(t, http.MethodPost, "/applications/"+itoa(app.ID)+"/reject", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = api.do(t, http.MethodPost, "/applications/999/reject", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = api.do(t, http.MethodGet, "/applications", nil)
	apps := decode[[]domain.Application](t, res)
	require.Len(t, apps, 1)
	assert.True(t, apps[0].Rejected)
}

func TestScrapeRun(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/scrape/run", nil)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Eventually(t, func() bool { return api.poller.Runs() == 1 }, time.Second, 10*time.Millisecond)

	api.poller.mu.Lock()
	api.poller.running = true
	api.poller.mu.Unlock()
	res = api.do(t, http.MethodPost, "/scrape/run", nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res = api.do(t, http.MethodGet, "/scrape/status", nil)
	st := decode[types.ScrapeStatus](t, res)
	assert.True(t, st.Running)
	assert.Equal(t, "run-1", st.LastRunID)

	res = api.do(t, http.MethodPost, "/listings/check", nil)
	sum := decode[poll.CheckSummary](t, res)
	assert.Equal(t, 1, sum.Dead)
}

func TestGroupOutcomes(t *testing.T) {
	outs := []domain.ScrapeOutcome{
		{RunID: "r", Company: "a", Category: domain.OutcomeOK},
		{RunID: "r", Company: "b", Category: domain.OutcomeNotFound},
		{RunID: "r", Company: "c", Category: domain.OutcomeRedirect},
		{RunID: "r", Company: "d", Category: domain.OutcomeNotFound},
	}
	got := groupOutcomes(outs)
	assert.Equal(t, "r", got.RunID)
	require.Len(t, got.Groups, 3)
	assert.Equal(t, domain.OutcomeRedirect, got.Groups[0].Category)
	assert.Equal(t, domain.OutcomeNotFound, got.Groups[1].Category)
	assert.Len(t, got.Groups[1].Outcomes, 2)
	assert.Equal(t, domain.OutcomeOK, got.Groups[2].Category)

	assert.Empty(t, groupOutcomes(nil).Groups)
}

func TestReviewRoute(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.db.RecordOutcome(context.Background(), domain.ScrapeOutcome{
		RunID: "run-9", BoardID: 1, Company: "Acme", BoardURL: "https://jobs.lever.co/acme",
		Category: domain.OutcomeNoListings, At: time.Now(),
	}))

	res := api.do(t, http.MethodGet, "/scrape/review", nil)
	got := decode[ReviewResponse](t, res)
	assert.Equal(t, "run-9", got.RunID)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, domain.OutcomeNoListings, got.Groups[0].Category)
}

func TestDiscoveryRoutes(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		path   string
		req    DetectRequest
		method string
		vendor string
		boards []string
	}{
		{"pipeline", "/detect", DetectRequest{Company: "acme", Homepage: "https://acme.test"}, "crawl", "", []string{"https://jobs.lever.co/acme"}},
		{"jobs page", "/detect", DetectRequest{Company: "acme", JobsPage: "https://acme.test/jobs"}, "jobs_page", "greenhouse", []string{"https://boards.greenhouse.io/acme"}},
		{"brute force", "/bruteforce", DetectRequest{Company: "acme"}, "brute_force", "", []string{"https://jobs.ashbyhq.com/acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := api.do(t, http.MethodPost, tt.path, tt.req)
			require.Equal(t, http.StatusOK, res.StatusCode)
			got := decode[DetectResponse](t, res)
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.vendor, got.Vendor)
			assert.Equal(t, tt.boards, got.Boards)
			assert.Empty(t, got.Saved)
		})
	}

	res := api.do(t, http.MethodPost, "/detect", DetectRequest{Company: "  "})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDetectSavesBoards(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/detect", DetectRequest{Company: "Acme", Homepage: "https://acme.test", Save: true})
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decode[DetectResponse](t, res)
	require.Len(t, got.Saved, 1)
	assert.Equal(t, "lever", got.Saved[0].Vendor)

	c, err := api.db.CompanyByName(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.test", c.Homepage)
	boards, err := api.db.ActiveBoards(context.Background())
	require.NoError(t, err)
	assert.Len(t, boards, 1)
}

func TestCrawlRoute(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/crawl", CrawlRequest{URL: " https://acme.test "})
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decode[crawl.Result](t, res)
	assert.Equal(t, "https://acme.test", got.StartURL)

	res = api.do(t, http.MethodPost, "/crawl", CrawlRequest{})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = api.do(t, http.MethodPost, "/crawl", map[string]string{"link": "x"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestConfigRoutes(t *testing.T) {
	api := newTestAPI(t)
	ch := api.hub.Subscribe()
	defer api.hub.Unsubscribe(ch)

	bad := config.Default()
	bad.App.Port = 0
	res := api.do(t, http.MethodPut, "/config", bad)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	vr := decode[config.Validation](t, res)
	assert.NotEmpty(t, vr.Errors)

	good := config.Default()
	good.Polling.IntervalMinutes = 90
	res = api.do(t, http.MethodPut, "/config", good)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 90, api.cfgVal.Load().(config.Config).Polling.IntervalMinutes)

	select {
	case msg := <-ch:
		var e events.Event
		require.NoError(t, json.Unmarshal([]byte(msg), &e))
		assert.Equal(t, events.ConfigUpdated, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no config event")
	}

	res = api.do(t, http.MethodGet, "/config/path", nil)
	assert.Contains(t, decode[map[string]string](t, res)["path"], "config.yml")
}

func TestPathID(t *testing.T) {
	tests := []struct {
		path string
		id   int64
		ok   bool
	}{
		{"/boards/12/active", 12, true},
		{"/boards/12", 12, true},
		{"/boards/", 0, false},
		{"/boards/-1/active", 0, false},
		{"/listings/12", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok := pathID(tt.path, "/boards/")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
