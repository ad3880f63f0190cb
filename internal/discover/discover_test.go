package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobglob-engine/internal/classify"
	"jobglob-engine/internal/crawl"
	"jobglob-engine/internal/fetch"
	"jobglob-engine/internal/vendor"
)

type memCache map[string]string

func (m memCache) GetCompanyDomain(_ context.Context, company string) (string, error) {
	return m[company], nil
}

func (m memCache) UpsertCompanyDomain(_ context.Context, company, domain string) error {
	m[company] = domain
	return nil
}

func TestHomepageFinder(t *testing.T) {
	var searches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		assert.Equal(t, "Acme official website", r.URL.Query().Get("q"))
		fmt.Fprintf(w, `
			<a class="result__a" href="https://www.linkedin.com/company/acme">LinkedIn</a>
			<a class="result__a" href="//duckduckgo.com/l/?uddg=%s">Greenhouse</a>
			<a class="result__a" href="//duckduckgo.com/l/?uddg=%s">Acme</a>`,
			url.QueryEscape("https://boards.greenhouse.io/acme"),
			url.QueryEscape("https://www.acme.com/about"))
	}))
	defer srv.Close()

	cache := memCache{}
	f := NewHomepageFinder(fetch.New(fetch.Options{}), cache, vendor.Default(), srv.URL)

	hp, err := f.Find(context.Background(), "Acme, Inc.")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.com", hp)
	assert.Equal(t, "acme.com", cache["Acme, Inc."])

	hp, err = f.Find(context.Background(), "Acme, Inc.")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.com", hp)
	assert.Equal(t, int32(1), searches.Load(), "second lookup is served from cache")
}

func TestSanitizeCompanyForSearch(t *testing.T) {
	assert.Equal(t, "Acme", sanitizeCompanyForSearch(" Acme, Inc. "))
	assert.Equal(t, "Big Co", sanitizeCompanyForSearch("Big  Co LLC"))
}

// pipelineServer serves a company site at / and fake vendor boards under
// /lever/<slug> and /ashby/<slug>.
func pipelineServer(t *testing.T, home string, boards map[string]bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			fmt.Fprint(w, home)
		case boards[r.URL.Path]:
			fmt.Fprint(w, "<html>jobs</html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDiscoverer(t *testing.T, base string) *Discoverer {
	t.Helper()
	table, err := vendor.Parse([]byte(fmt.Sprintf(`
url_chunks:
  - chunk: jobs.lever.co
    vendor: lever
  - chunk: jobs.ashbyhq.com
    vendor: ashby
templates:
  lever: %[1]s/lever/$company
  ashby: %[1]s/ashby/$company
`, base)))
	require.NoError(t, err)
	client := fetch.New(fetch.Options{})
	return New(table, client, classify.New(table, client, classify.Options{}), nil, crawl.Options{MaxDepth: 10})
}

func TestFindBoards(t *testing.T) {
	tests := []struct {
		name   string
		home   string
		boards map[string]bool
		method Method
		want   func(base string) []string
	}{
		{
			name:   "crawl finds a link",
			home:   `<a href="https://jobs.lever.co/acme">Jobs</a>`,
			method: MethodCrawl,
			want:   func(string) []string { return []string{"https://jobs.lever.co/acme"} },
		},
		{
			name:   "weak signal narrows to one vendor",
			home:   `<p>Apply via jobs.ashbyhq.com</p>`,
			boards: map[string]bool{"/ashby/acme": true, "/lever/acme": true},
			method: MethodWeakSignal,
			want:   func(base string) []string { return []string{base + "/ashby/acme"} },
		},
		{
			name:   "brute force as a last resort",
			home:   `<p>Nothing here</p>`,
			boards: map[string]bool{"/lever/acme": true},
			method: MethodBruteForce,
			want:   func(base string) []string { return []string{base + "/lever/acme"} },
		},
		{
			name:   "nothing found",
			home:   `<p>Nothing here</p>`,
			method: MethodNone,
			want:   func(string) []string { return nil },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := pipelineServer(t, tt.home, tt.boards)
			d := newDiscoverer(t, srv.URL)

			rep, err := d.FindBoards(context.Background(), "Acme", srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.method, rep.Method)
			assert.Equal(t, tt.want(srv.URL), rep.Boards)
			require.NotNil(t, rep.Crawl)
		})
	}
}

func TestFindBoardsWithoutHomepage(t *testing.T) {
	srv := pipelineServer(t, "", map[string]bool{"/lever/acme": true})
	d := newDiscoverer(t, srv.URL)

	rep, err := d.FindBoards(context.Background(), "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, MethodBruteForce, rep.Method)
	assert.Nil(t, rep.Crawl)
}
