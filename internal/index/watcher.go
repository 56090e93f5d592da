package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/furyload/internal/checksum"
	"github.com/starford/furyload/internal/models"
	"github.com/starford/furyload/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of KindCreated, KindUpdated, KindDeleted.
type EventCallback func(kind string, path string)

// reconcileDelay debounces the pass that follows a rename.
const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on a local content directory and keeps
// the index current until ctx is cancelled. Only Markdown files below
// docRoot (for example "posts/") are indexed. cb, if non-nil, is called
// after each successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a reconciliation pass that removes index entries whose
// files are gone and indexes files that are not yet known.
func Watch(ctx context.Context, db *DB, store storage.Provider, docRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	docRoot = strings.Trim(docRoot, "/")

	logger.Info("watcher: started", slog.String("root", root), slog.String("documents", docRoot))

	notify := func(kind, rel string) {
		if cb != nil {
			cb(kind, rel)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, docRoot, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// Files may land in the directory before it is watched.
					scheduleReconcile()
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, ok := relPath(root, docRoot, absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind, changed, idxErr := indexLocal(db, store, rel)
				if idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				if !changed {
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				notify(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteDocument(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				notify(KindDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives
				// as a Create when it stays inside a watched directory.
				if delErr := db.DeleteDocument(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					notify(KindDeleted, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a file on disk and indexes files
// that are missing or changed.
func reconcile(db *DB, store storage.Provider, docRoot string, logger *slog.Logger, notify func(kind, rel string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files, err := store.List(docRoot)
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(files))
	for _, f := range files {
		disk[f.Path] = f.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if delErr := db.DeleteDocument(p); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			notify(KindDeleted, p)
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		kind, changed, idxErr := indexLocal(db, store, p)
		if idxErr == nil && changed {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			notify(kind, p)
		}
	}
}

// indexLocal reads rel from store and upserts it unless its checksum is
// unchanged. The group of an existing entry is kept.
func indexLocal(db *DB, store storage.Provider, rel string) (kind string, changed bool, err error) {
	data, err := store.Read(rel)
	if err != nil {
		return "", false, err
	}
	cs := checksum.Sum(data)

	kind = KindCreated
	meta := models.DocumentMeta{Path: rel}
	if existing, getErr := db.GetDocument(rel); getErr == nil {
		if existing.Checksum == cs {
			return "", false, nil
		}
		kind = KindUpdated
		meta.Group = existing.Group
		meta.Category = existing.Category
	}
	if t, statErr := store.Stat(rel); statErr == nil {
		meta.UpdatedAt = t
	}
	if err := indexDocument(db, meta, data, cs); err != nil {
		return "", false, err
	}
	return kind, true, nil
}

// relPath converts an absolute file path to a slash-separated path relative
// to root. ok is false for files outside docRoot.
func relPath(root, docRoot, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return "", false
	}
	if docRoot != "" && !strings.HasPrefix(rel, docRoot+"/") {
		return "", false
	}
	return rel, true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
