package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/log"
)

const nowPlayingBody = `{
  "dates": {"maximum": "2026-03-20", "minimum": "2026-02-01"},
  "page": 2,
  "results": [
    {"id": 101, "title": "Dune", "overview": "Sand.", "poster_path": "/dune.jpg", "backdrop_path": null, "release_date": "2026-03-01", "vote_average": 8.4},
    {"id": 102, "title": "Heat", "overview": "", "poster_path": null, "release_date": "", "vote_average": 0}
  ],
  "total_pages": 7,
  "total_results": 130
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string, attempts uint) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(server.Close)

	c := NewClient(server.URL+"/3/", apiKey, Options{Language: "en-US", Region: "US", RetryAttempts: attempts}, log.NullLogger())
	c.retry.baseDelay = time.Millisecond
	c.retry.maxDelay = 5 * time.Millisecond
	return c
}

func TestFetchPage_MapsResponse(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/movie/now_playing", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		assert.Equal(t, "US", r.URL.Query().Get("region"))
		assert.Equal(t, "v3key", r.URL.Query().Get("api_key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(nowPlayingBody))
	}, "v3key", 1)

	page, err := c.FetchPage(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 7, page.TotalPages)
	assert.Equal(t, 130, page.TotalItems)
	require.Len(t, page.Items, 2)

	dune := page.Items[0]
	assert.Equal(t, int64(101), dune.ID)
	assert.Equal(t, "/dune.jpg", dune.PosterPath)
	assert.Empty(t, dune.BackdropPath)
	assert.Equal(t, 2026, dune.Year())
	assert.Equal(t, "8.4", dune.FormattedRating())

	heat := page.Items[1]
	assert.True(t, heat.ReleaseDate.IsZero())
	assert.Empty(t, heat.FormattedRating())
}

func TestFetchPage_BearerToken(t *testing.T) {
	t.Parallel()
	token := "eyJhbGciOiJIUzI1NiJ9.eyJhdWQiOiJ4In0.sig"

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":1,"total_results":0}`))
	}, token, 1)

	page, err := c.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestFetchPage_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(nowPlayingBody))
	}, "k", 3)

	page, err := c.FetchPage(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPage_GivesUpAfterAttempts(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status_code":25,"status_message":"Your request count is over the limit."}`))
	}, "k", 2)

	_, err := c.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Contains(t, err.Error(), "over the limit")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPage_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrAuthFailed)
		}},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			assert.True(t, IsStatus(err, http.StatusNotFound))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}, "k", 5)

			_, err := c.FetchPage(context.Background(), 1)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestFetchPage_ServerOffline(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(url, "k", Options{RetryAttempts: 1}, log.NullLogger())
	_, err := c.FetchPage(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrServerOffline)
}

func TestFetchPage_MalformedBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page": "one"`))
	}, "k", 1)

	_, err := c.FetchPage(context.Background(), 1)
	assert.Error(t, err)
}

func TestFetchPage_BeyondLastServedPage(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, "k", 1)

	page, err := c.FetchPage(context.Background(), maxPage+1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, maxPage, page.TotalPages)
}
