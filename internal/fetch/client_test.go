package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRecordsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "hello")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Options{})
	res, err := c.Get(context.Background(), srv.URL+"/old")
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.True(t, res.Redirected())
	assert.Equal(t, srv.URL+"/old", res.RequestURL)
	assert.Equal(t, srv.URL+"/new", res.FinalURL)
	assert.Equal(t, "hello", res.Text())
}

func TestRedirectedIgnoresTrailingSlash(t *testing.T) {
	res := &Response{RequestURL: "https://jobs.lever.co/acme", FinalURL: "https://jobs.lever.co/acme/"}
	assert.False(t, res.Redirected())
}

func TestUserAgentComesFromPool(t *testing.T) {
	pool := []string{"ua-one", "ua-two"}
	seen := make(chan string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := New(Options{UserAgents: pool})
	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Contains(t, pool, <-seen)
	}
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	c := New(Options{})
	res, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"q": "x"})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, DecodeJSON(res, &got))
	assert.Equal(t, "x", got["q"])
}

func TestDecodeJSONStatusError(t *testing.T) {
	err := DecodeJSON(&Response{Status: 404, RequestURL: "https://x/y"}, &struct{}{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.Status)
}

func TestGetHonorsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Options{Timeout: 50 * time.Millisecond})
	_, err := c.Get(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestNilHostLimiterDoesNotWait(t *testing.T) {
	var hl *HostLimiter
	assert.NoError(t, hl.WaitURL(context.Background(), "https://example.com"))
	assert.Nil(t, NewHostLimiter(0, 1))
}

func TestHostLimiterIsPerHost(t *testing.T) {
	hl := NewHostLimiter(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.WaitURL(ctx, "https://a.example.com/x"))
	require.NoError(t, hl.WaitURL(ctx, "https://b.example.com/x"))
	// second hit on the same host must wait ~1s and so exceeds the deadline
	assert.Error(t, hl.WaitURL(ctx, "https://a.example.com/y"))
}
