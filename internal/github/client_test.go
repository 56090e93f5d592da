package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/furyload/internal/apperr"
)

func testClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Options{
		Owner:             "owner",
		Repo:              "site",
		Branch:            "main",
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	return c
}

func TestListDirectory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/site/contents/posts/md", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		w.Header().Set(HeaderRateRemaining, "42")
		w.Header().Set(HeaderRateLimit, "60")
		_, _ = w.Write([]byte(`[
			{"type":"file","name":"guide.md","path":"posts/md/guide.md","sha":"a1"},
			{"type":"dir","name":"img","path":"posts/md/img","sha":"b2"}
		]`))
	})
	c := testClient(t, mux)

	entries, err := c.ListDirectory(context.Background(), "posts/md/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Name: "guide.md", Path: "posts/md/guide.md", Type: "file", SHA: "a1"}, entries[0])
	assert.Equal(t, "dir", entries[1].Type)
	assert.Equal(t, 42, c.RateLimiter().Remaining())
	assert.Equal(t, 60, c.RateLimiter().Limit())
}

func TestListDirectory_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/site/contents/posts/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})
	c := testClient(t, mux)

	_, err := c.ListDirectory(context.Background(), "posts/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}

func TestListDirectory_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/site/contents/posts/md", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	})
	c := testClient(t, mux)

	_, err := c.ListDirectory(context.Background(), "posts/md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstream), "got %v", err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestLatestCommitTime(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/site/commits", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "posts/md/guide.md", q.Get("path"))
		assert.Equal(t, "1", q.Get("per_page"))
		_, _ = w.Write([]byte(`[{"sha":"abc","commit":{"committer":{"date":"2024-05-01T10:00:00Z"}}}]`))
	})
	c := testClient(t, mux)

	ts, ok, err := c.LatestCommitTime(context.Background(), "posts/md/guide.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestLatestCommitTime_NoHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/site/commits", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	c := testClient(t, mux)

	_, ok, err := c.LatestCommitTime(context.Background(), "posts/new.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_UnknownQuotaDoesNotBlock(t *testing.T) {
	r := NewRateLimiter(1000)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
	assert.Equal(t, -1, r.Remaining())
}

func TestRateLimiter_WaitsForReset(t *testing.T) {
	r := NewRateLimiter(1000)
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(HeaderRateRemaining, "0")
	resp.Header.Set(HeaderRateReset, "9999999999")
	r.UpdateFromResponse(resp)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
