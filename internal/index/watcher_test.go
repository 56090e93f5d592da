package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/furyload/internal/storage"
)

// watcherTestEnv sets up a content dir with a posts/md category, storage,
// and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	contentDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(contentDir, "posts", "md"), 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(contentDir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func errorLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, "posts/", errorLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "posts", "md", "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		d, err := db.GetDocument("posts/md/new.md")
		return err == nil && d.Title == "New"
	}, "new file not indexed with its title by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:posts/md/new.md" {
				return true
			}
		}
		return false
	}, "expected created:posts/md/new.md callback")

	d, err := db.GetDocument("posts/md/new.md")
	if err != nil {
		t.Fatal(err)
	}
	if d.Category != "md" || d.UpdatedAt.IsZero() {
		t.Errorf("document = %+v", d)
	}
}

func TestWatcher_IgnoresFilesOutsideDocumentRoot(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, "posts/", errorLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Readme"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "posts", "md", "in.md"), []byte("# In"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("posts/md/in.md")
		return cs != ""
	}, "document not indexed")

	if cs, _ := db.GetChecksum("README.md"); cs != "" {
		t.Error("file outside the document root was indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, "posts/", errorLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "posts", "svn")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("posts/svn/deep.md")
		return cs != ""
	}, "file in new directory not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	file := filepath.Join(dir, "posts", "md", "del.md")
	_ = os.WriteFile(file, []byte("# Delete Me"), 0o644)
	if _, _, err := indexLocal(db, store, "posts/md/del.md"); err != nil {
		t.Fatalf("precondition: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, "posts/", errorLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(file)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("posts/md/del.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, store, db := watcherTestEnv(t)

	oldPath := filepath.Join(dir, "posts", "md", "old.md")
	_ = os.WriteFile(oldPath, []byte("# Rename"), 0o644)
	if _, _, err := indexLocal(db, store, "posts/md/old.md"); err != nil {
		t.Fatalf("precondition: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, "posts/", errorLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(oldPath, filepath.Join(dir, "posts", "md", "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("posts/md/old.md")
		newCS, _ := db.GetChecksum("posts/md/renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestIndexLocal_UnchangedSkipped(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "posts", "md", "same.md"), []byte("# Same"), 0o644)

	kind, changed, err := indexLocal(db, store, "posts/md/same.md")
	if err != nil || !changed || kind != KindCreated {
		t.Fatalf("first = %q, %v, %v", kind, changed, err)
	}
	_, changed, err = indexLocal(db, store, "posts/md/same.md")
	if err != nil || changed {
		t.Errorf("second = %v, %v; want unchanged", changed, err)
	}
}

func TestRelPath(t *testing.T) {
	root := filepath.FromSlash("/srv/content")
	cases := []struct {
		abs  string
		want string
		ok   bool
	}{
		{filepath.FromSlash("/srv/content/posts/md/a.md"), "posts/md/a.md", true},
		{filepath.FromSlash("/srv/content/README.md"), "", false},
		{filepath.FromSlash("/srv/other/posts/a.md"), "", false},
	}
	for _, c := range cases {
		got, ok := relPath(root, "posts", c.abs)
		if got != c.want || ok != c.ok {
			t.Errorf("relPath(%q) = %q, %v; want %q, %v", c.abs, got, ok, c.want, c.ok)
		}
	}
}
