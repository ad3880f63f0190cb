package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/vendor"
)

func html(body string) string {
	return "<html><body>" + body + "</body></html>"
}

type siteMap map[string]string

func (m siteMap) server(t *testing.T, hits map[string]*atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := hits[r.URL.Path]; ok {
			c.Add(1)
		}
		page, ok := m[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newCrawler(t *testing.T, table *vendor.Table, opts Options) *Crawler {
	t.Helper()
	if table == nil {
		table = vendor.Default()
	}
	return New(table, fetch.New(fetch.Options{Timeout: 5 * time.Second}), opts)
}

func TestCrawlFindsBoardsAndWeakSignals(t *testing.T) {
	logo := &atomic.Int32{}
	srv := siteMap{
		"/":         html(`<a href="/about">About</a> <a href="/careers">Careers</a> <img src="/logo.png">`),
		"/careers":  html(`<a href="https://jobs.lever.co/acme/">Open roles</a> <a href="/">Home</a>`),
		"/about":    html(`<p>We run hiring on bamboohr.com for now.</p>`),
		"/logo.png": "png",
	}.server(t, map[string]*atomic.Int32{"/logo.png": logo})

	c := newCrawler(t, nil, Options{StartURL: srv.URL})
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Completed, res.State)
	assert.Equal(t, Completed, c.State())
	assert.Empty(t, res.Limit)
	assert.Equal(t, []string{"https://jobs.lever.co/acme"}, res.Boards)
	assert.Equal(t, map[string][]string{srv.URL + "/about": {"bamboohr.com"}}, res.WeakSignals)
	assert.Equal(t, 3, res.PagesVisited)
	assert.Zero(t, logo.Load())
	assert.NotEmpty(t, res.RunID)
}

func TestCrawlWeakSignalsIgnoreCase(t *testing.T) {
	srv := siteMap{
		"/": html(`<p>Apply through our Jobs.Lever.co/Acme page or email us.</p>`),
	}.server(t, nil)

	c := newCrawler(t, nil, Options{StartURL: srv.URL})
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Boards)
	assert.Equal(t, map[string][]string{srv.URL: {"jobs.lever.co"}}, res.WeakSignals)
}

func TestCrawlMaxHitsStopsAtOne(t *testing.T) {
	srv := siteMap{
		"/": html(`<a href="/careers">Careers</a>`),
		"/careers": html(`<a href="https://jobs.lever.co/acme">Lever</a>
			<a href="https://boards.greenhouse.io/acme">Greenhouse</a>
			<a href="/a">a</a> <a href="/b">b</a>`),
		"/a": html(`<a href="/c">c</a>`),
		"/b": html(`<a href="/d">d</a>`),
	}.server(t, nil)

	res, err := newCrawler(t, nil, Options{StartURL: srv.URL, MaxHits: 1}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, LimitExceeded, res.State)
	assert.Equal(t, "hits", res.Limit)
	assert.Len(t, res.Boards, 1)
}

func TestCrawlMaxDepth(t *testing.T) {
	pages := siteMap{}
	var links []string
	for i := 0; i < 10; i++ {
		links = append(links, fmt.Sprintf(`<a href="/p%d">p%d</a>`, i, i))
		pages[fmt.Sprintf("/p%d", i)] = html(`<a href="/">home</a>`)
	}
	pages["/"] = html(strings.Join(links, " "))
	srv := pages.server(t, nil)

	res, err := newCrawler(t, nil, Options{StartURL: srv.URL, MaxDepth: 2}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, LimitExceeded, res.State)
	assert.Equal(t, "depth", res.Limit)
	assert.Equal(t, 2, res.PagesVisited)
}

func blockingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlCancelWaitsForWorkers(t *testing.T) {
	srv := blockingServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	res, err := newCrawler(t, nil, Options{StartURL: srv.URL}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, Cancelled, res.State)
	assert.Empty(t, res.Boards)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCrawlMaxDuration(t *testing.T) {
	srv := blockingServer(t)

	res, err := newCrawler(t, nil, Options{StartURL: srv.URL, MaxDuration: 100 * time.Millisecond}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, LimitExceeded, res.State)
	assert.Equal(t, "duration", res.Limit)
}

func TestCrawlFixesEmbedScript(t *testing.T) {
	srv := siteMap{
		"/": html(`<script src="https://acme.bamboohr.com/js/embed.js"></script>`),
	}.server(t, nil)

	res, err := newCrawler(t, nil, Options{StartURL: srv.URL}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.bamboohr.com/careers"}, res.Boards)
}

func TestCrawlRedirectToBoard(t *testing.T) {
	boards := siteMap{"/acme": html(`<h1>Jobs</h1>`)}.server(t, nil)
	home := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, html(`<a href="/jobs">Jobs</a>`))
		case "/jobs":
			http.Redirect(w, r, boards.URL+"/acme", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(home.Close)

	table, err := vendor.Parse([]byte(fmt.Sprintf("url_chunks:\n  - chunk: %s\n    vendor: lever\n", strings.TrimPrefix(boards.URL, "http://"))))
	require.NoError(t, err)

	res, err := newCrawler(t, table, Options{StartURL: home.URL}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{boards.URL + "/acme"}, res.Boards)
}

func TestCrawlRespectsRobots(t *testing.T) {
	private := &atomic.Int32{}
	srv := siteMap{
		"/robots.txt": "User-agent: *\nDisallow: /private\n",
		"/":           html(`<a href="/private">secret</a> <a href="/careers">Careers</a>`),
		"/private":    html(`<a href="https://jobs.lever.co/hidden">x</a>`),
		"/careers":    html(`<a href="https://jobs.lever.co/acme">Lever</a>`),
	}.server(t, map[string]*atomic.Int32{"/private": private})

	res, err := newCrawler(t, nil, Options{StartURL: srv.URL, RespectRobots: true}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Completed, res.State)
	assert.Equal(t, []string{"https://jobs.lever.co/acme"}, res.Boards)
	assert.Zero(t, private.Load())
	assert.Equal(t, 2, res.PagesVisited)
}

func TestCrawlRunsOnce(t *testing.T) {
	srv := siteMap{"/": html(`<p>hello</p>`)}.server(t, nil)
	c := newCrawler(t, nil, Options{StartURL: srv.URL})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	_, err = c.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestCrawlRejectsBadStart(t *testing.T) {
	c := newCrawler(t, nil, Options{StartURL: "ftp://acme.com"})
	_, err := c.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Idle, c.State())
}
