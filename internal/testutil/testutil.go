// Package testutil provides shared test helpers for setting up content
// directories, databases and a wired document service.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/furyload/internal/content"
	"github.com/starford/furyload/internal/docservice"
	"github.com/starford/furyload/internal/index"
	"github.com/starford/furyload/internal/lastmod"
	"github.com/starford/furyload/internal/listing"
	"github.com/starford/furyload/internal/render"
	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/storage"
)

// AssetRoot is the image root used by sites built with NewSite.
const AssetRoot = "/raw"

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "furyload-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestContent creates a temporary content directory holding files
// (slash-separated relative path → body) and a storage.Provider over it.
func TestContent(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for rel, body := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// ListingConfig returns a two-group listing over the categories md, vi and
// svn with demo1.md excluded.
func ListingConfig() *listing.Config {
	return &listing.Config{
		DocumentRoot: "posts",
		Groups: []listing.GroupConfig{
			{Key: "editor", Title: "Editor", Categories: []string{"md", "vi"}},
			{Key: "server", Title: "Server", Categories: []string{"svn"}},
		},
		Exclude: []string{"demo1.md"},
	}
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Site is a document service over a local content directory.
type Site struct {
	Dir     string
	Store   storage.Provider
	DB      *index.DB
	Service *docservice.Service
}

// NewSite builds a Site over files using ListingConfig, a search index and
// images resolved against AssetRoot.
func NewSite(t *testing.T, files map[string]string) *Site {
	t.Helper()
	dir, store := TestContent(t, files)
	db := TestDB(t)
	assets := resolve.New(AssetRoot)
	svc := docservice.New(docservice.Deps{
		Listing:  ListingConfig(),
		Lister:   listing.NewLocalLister(store),
		Fetcher:  content.NewLocalFetcher(store),
		LastMod:  lastmod.NewLocal(store),
		Renderer: render.New(assets),
		Assets:   assets,
		Index:    db,
		Logger:   Logger(),
	})
	return &Site{Dir: dir, Store: store, DB: db, Service: svc}
}

// SampleFiles is a small content tree used across handler tests.
func SampleFiles() map[string]string {
	return map[string]string{
		"posts/md/guide.md": "# Markdown Guide\n\n![logo](./img/logo.png)\n\n## Syntax\n\n## Tables\n\n```go\nfmt.Println(1)\n```\n",
		"posts/md/demo1.md": "# Demo\n",
		"posts/vi/vim.md":   "# Vim\n\nmodal editing\n",
		"posts/svn/svn.md":  "Subversion\n==========\n\nCentral\n-------\n\nBranches\n--------\n",
	}
}
