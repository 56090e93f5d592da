package listing

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/furyload/internal/models"
)

// maxConcurrentCategories bounds parallel directory requests.
const maxConcurrentCategories = 4

// Build lists every configured category and assembles the groups in
// configuration order. A category that fails to list is logged and skipped;
// groups without documents are omitted.
func Build(ctx context.Context, cfg *Config, lister Lister, logger *slog.Logger) ([]models.Group, error) {
	root := cfg.Root()

	type slot struct {
		group    string
		category string
		docs     []models.DocumentMeta
	}
	var slots []*slot
	for _, g := range cfg.Groups {
		for _, c := range g.Categories {
			slots = append(slots, &slot{group: g.Key, category: c})
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentCategories)
	for _, s := range slots {
		eg.Go(func() error {
			names, err := lister.ListMarkdown(egCtx, root+s.category)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				logger.Warn("listing: category failed",
					slog.String("category", s.category),
					slog.String("error", err.Error()))
				return nil
			}
			sort.Strings(names)
			for _, name := range names {
				if cfg.Excluded(name) {
					continue
				}
				s.docs = append(s.docs, models.DocumentMeta{
					Path:     root + s.category + "/" + name,
					Name:     name,
					Title:    strings.TrimSuffix(name, ".md"),
					Category: s.category,
					Group:    s.group,
				})
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	byGroup := make(map[string][]models.DocumentMeta)
	for _, s := range slots {
		byGroup[s.group] = append(byGroup[s.group], s.docs...)
	}

	var out []models.Group
	for _, g := range cfg.Groups {
		docs := byGroup[g.Key]
		if len(docs) == 0 {
			continue
		}
		out = append(out, models.Group{Key: g.Key, Title: g.Title, Documents: docs})
	}
	return out, nil
}

// Flatten returns every document of groups in display order.
func Flatten(groups []models.Group) []models.DocumentMeta {
	var out []models.DocumentMeta
	for _, g := range groups {
		out = append(out, g.Documents...)
	}
	return out
}
