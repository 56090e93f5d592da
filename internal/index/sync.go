package index

import (
	"context"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/starford/furyload/internal/checksum"
	"github.com/starford/furyload/internal/content"
	"github.com/starford/furyload/internal/models"
	"github.com/starford/furyload/internal/parser"
)

// Change kinds reported by Sync and Watch.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Change is one index mutation.
type Change struct {
	Kind string
	Path string
}

// maxConcurrentFetches bounds parallel document downloads during Sync.
const maxConcurrentFetches = 4

// Sync brings the index in line with the current listing:
//   - listed documents are fetched; new or changed ones are upserted
//   - indexed documents that are no longer listed are deleted
//
// A document that fails to fetch keeps its previous index entry.
func Sync(ctx context.Context, db *DB, docs []models.DocumentMeta, fetcher content.Fetcher, logger *slog.Logger) ([]Change, error) {
	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	bodies := make([][]byte, len(docs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentFetches)
	for i, d := range docs {
		eg.Go(func() error {
			data, err := fetcher.Fetch(egCtx, d.Path)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				logger.Warn("sync: fetch failed", slog.String("path", d.Path), slog.String("error", err.Error()))
				return nil
			}
			bodies[i] = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var changes []Change
	listed := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		listed[d.Path] = struct{}{}
		data := bodies[i]
		if data == nil {
			continue
		}
		old, known := checksums[d.Path]
		cs := checksum.Sum(data)
		if known && old == cs {
			continue
		}
		if err := indexDocument(db, d, data, cs); err != nil {
			logger.Warn("sync: index failed", slog.String("path", d.Path), slog.String("error", err.Error()))
			continue
		}
		kind := KindCreated
		if known {
			kind = KindUpdated
		}
		logger.Debug("sync: indexed", slog.String("path", d.Path), slog.String("op", kind))
		changes = append(changes, Change{Kind: kind, Path: d.Path})
	}

	// Remove entries that are no longer listed.
	for p := range checksums {
		if _, ok := listed[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		changes = append(changes, Change{Kind: KindDeleted, Path: p})
	}

	return changes, nil
}

// indexDocument parses data and upserts it with the listing metadata of d.
func indexDocument(db *DB, d models.DocumentMeta, data []byte, cs string) error {
	res := parser.Parse(data)
	title := res.Title
	if title == "" {
		title = d.Title
	}
	if title == "" {
		title = parser.TitleFromPath(d.Path)
	}
	category := d.Category
	if category == "" {
		category = path.Base(path.Dir(d.Path))
	}
	return db.UpsertDocument(DocumentRow{
		Path:      d.Path,
		Title:     title,
		Category:  category,
		Group:     d.Group,
		Checksum:  cs,
		UpdatedAt: d.UpdatedAt,
	}, res.Body)
}
