package lastmod

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/furyload/internal/github"
	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/storage"
)

type fixed struct {
	t  time.Time
	ok bool
}

func (f fixed) LastModified(context.Context, string) (time.Time, bool) { return f.t, f.ok }

func TestChain_FirstHitWins(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Chain{fixed{}, fixed{t: want, ok: true}, fixed{t: time.Now(), ok: true}}
	got, ok := c.LastModified(context.Background(), "posts/md/a.md")
	if !ok || !got.Equal(want) {
		t.Fatalf("LastModified = %v, %v; want %v, true", got, ok, want)
	}
}

func TestChain_AllMiss(t *testing.T) {
	if _, ok := (Chain{fixed{}, fixed{}}).LastModified(context.Background(), "x.md"); ok {
		t.Error("expected miss")
	}
}

func TestHTTPHead(t *testing.T) {
	stamp := time.Date(2023, 11, 5, 8, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		switch r.URL.Path {
		case "/posts/md/a.md":
			w.Header().Set("Last-Modified", stamp.Format(http.TimeFormat))
		case "/posts/md/nodate.md":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTPHead(resolve.New(srv.URL), srv.Client())

	got, ok := p.LastModified(context.Background(), "posts/md/a.md")
	if !ok || !got.Equal(stamp) {
		t.Errorf("LastModified = %v, %v; want %v", got, ok, stamp)
	}
	if _, ok := p.LastModified(context.Background(), "posts/md/nodate.md"); ok {
		t.Error("missing header should be a miss")
	}
	if _, ok := p.LastModified(context.Background(), "posts/md/missing.md"); ok {
		t.Error("404 should be a miss")
	}
}

func TestLocal(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "posts", "a.md")
	_ = os.MkdirAll(filepath.Dir(full), 0o755)
	_ = os.WriteFile(full, []byte("# A"), 0o644)
	stamp := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	_ = os.Chtimes(full, stamp, stamp)

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	p := NewLocal(store)
	got, ok := p.LastModified(context.Background(), "posts/a.md")
	if !ok || !got.Equal(stamp) {
		t.Errorf("LastModified = %v, %v; want %v", got, ok, stamp)
	}
	if _, ok := p.LastModified(context.Background(), "posts/none.md"); ok {
		t.Error("missing file should be a miss")
	}
}

func TestGitHubCommits_ErrorIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := github.NewClient(context.Background(), github.Options{
		Owner:   "o",
		Repo:    "r",
		Branch:  "main",
		BaseURL: srv.URL + "/",
	})
	if err != nil {
		t.Fatal(err)
	}
	p := NewGitHubCommits(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, ok := p.LastModified(context.Background(), "posts/md/a.md"); ok {
		t.Error("API error should be a miss")
	}
}
