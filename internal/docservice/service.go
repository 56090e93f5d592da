// Package docservice ties listing, retrieval, parsing and rendering together
// for the web pages, the JSON API and the MCP server.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/furyload/internal/apperr"
	"github.com/starford/furyload/internal/checksum"
	"github.com/starford/furyload/internal/content"
	"github.com/starford/furyload/internal/index"
	"github.com/starford/furyload/internal/lastmod"
	"github.com/starford/furyload/internal/listing"
	"github.com/starford/furyload/internal/models"
	"github.com/starford/furyload/internal/parser"
	"github.com/starford/furyload/internal/render"
	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/toc"
)

// DefaultLastModTimeout bounds the modification time lookup of a render.
const DefaultLastModTimeout = 2 * time.Second

// ErrSearchDisabled is returned by Search when no index is configured.
var ErrSearchDisabled = errors.New("docservice: search index disabled")

// Document is one fully rendered document.
type Document struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	HTML     string `json:"html"`
	// Outline is nil when the document has fewer than two headings or the
	// outline is switched off.
	Outline      []toc.Entry    `json:"outline,omitempty"`
	Frontmatter  map[string]any `json:"frontmatter,omitempty"`
	Checksum     string         `json:"checksum"`
	LastModified time.Time      `json:"last_modified,omitzero"`
}

// OutlineResult is the outline of a document without its body.
type OutlineResult struct {
	Path    string      `json:"path"`
	Title   string      `json:"title"`
	Entries []toc.Entry `json:"entries"`
}

// RefreshResult summarises a Refresh call.
type RefreshResult struct {
	Groups    int            `json:"groups"`
	Documents int            `json:"documents"`
	Changes   []index.Change `json:"-"`
}

// ChangeFunc receives document changes ("created", "updated", "deleted").
type ChangeFunc func(kind, path string)

// Deps are the collaborators of a Service. Index, LastMod and OnChange
// are optional.
type Deps struct {
	Listing  *listing.Config
	Lister   listing.Lister
	Fetcher  content.Fetcher
	LastMod  lastmod.Provider
	Renderer *render.Renderer
	Assets   *resolve.Resolver
	Index    *index.DB
	Logger   *slog.Logger
	OnChange ChangeFunc
	// LastModTimeout bounds each LastMod lookup. Zero uses
	// DefaultLastModTimeout.
	LastModTimeout time.Duration
}

// Service renders documents and keeps a cached listing.
type Service struct {
	deps Deps

	mu     sync.RWMutex
	groups []models.Group
	loaded bool

	// refreshMu serialises Refresh so concurrent callers do not race on
	// the index.
	refreshMu sync.Mutex
}

// New creates a Service.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.LastModTimeout <= 0 {
		deps.LastModTimeout = DefaultLastModTimeout
	}
	return &Service{deps: deps}
}

// Config returns the injected listing configuration.
func (s *Service) Config() *listing.Config {
	return s.deps.Listing
}

// Listing returns the grouped documents, building the listing on first use.
func (s *Service) Listing(ctx context.Context) ([]models.Group, error) {
	s.mu.RLock()
	groups, loaded := s.groups, s.loaded
	s.mu.RUnlock()
	if loaded {
		return groups, nil
	}

	groups, err := listing.Build(ctx, s.deps.Listing, s.deps.Lister, s.deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("docservice: listing: %w", err)
	}
	s.storeListing(groups)
	return groups, nil
}

func (s *Service) storeListing(groups []models.Group) {
	s.mu.Lock()
	s.groups = groups
	s.loaded = true
	s.mu.Unlock()
}

// Lookup returns the listing entry of path, if it is listed.
func (s *Service) Lookup(ctx context.Context, path string) (models.DocumentMeta, bool) {
	groups, err := s.Listing(ctx)
	if err != nil {
		return models.DocumentMeta{}, false
	}
	for _, d := range listing.Flatten(groups) {
		if d.Path == path {
			return d, true
		}
	}
	return models.DocumentMeta{}, false
}

// Refresh rebuilds the listing and, when an index is configured, syncs it.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	groups, err := listing.Build(ctx, s.deps.Listing, s.deps.Lister, s.deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("docservice: refresh: %w", err)
	}
	s.storeListing(groups)

	docs := listing.Flatten(groups)
	res := &RefreshResult{Groups: len(groups), Documents: len(docs)}
	if s.deps.Index == nil {
		return res, nil
	}

	changes, err := index.Sync(ctx, s.deps.Index, docs, s.deps.Fetcher, s.deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("docservice: sync index: %w", err)
	}
	res.Changes = changes
	for _, c := range changes {
		s.notify(c.Kind, c.Path)
	}
	s.deps.Logger.Info("docservice: refreshed",
		slog.Int("groups", res.Groups),
		slog.Int("documents", res.Documents),
		slog.Int("changes", len(changes)))
	return res, nil
}

// HandleChange reacts to a change detected outside Refresh (the local
// content watcher). Creations and deletions invalidate the cached listing.
func (s *Service) HandleChange(kind, path string) {
	if kind == index.KindCreated || kind == index.KindDeleted {
		s.mu.Lock()
		s.loaded = false
		s.mu.Unlock()
	}
	s.notify(kind, path)
}

func (s *Service) notify(kind, path string) {
	if s.deps.OnChange != nil {
		s.deps.OnChange(kind, path)
	}
}

// Document fetches, parses and renders path. The modification time is
// looked up concurrently and left zero when it cannot be determined.
func (s *Service) Document(ctx context.Context, path string) (*Document, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	var (
		data     []byte
		modified time.Time
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		data, err = s.deps.Fetcher.Fetch(egCtx, path)
		return err
	})
	if s.deps.LastMod != nil {
		eg.Go(func() error {
			lmCtx, cancel := context.WithTimeout(egCtx, s.deps.LastModTimeout)
			defer cancel()
			if t, ok := s.deps.LastMod.LastModified(lmCtx, path); ok {
				modified = t
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("docservice: fetch %s: %w", path, err)
	}

	res := parser.Parse(data)
	outline := res.Outline
	if res.NoTOC || s.deps.Listing.Flags(path).NoTOC {
		outline = nil
	}

	html, err := s.deps.Renderer.Render(render.Input{Path: path, Body: res.Body, Outline: outline})
	if err != nil {
		return nil, fmt.Errorf("docservice: render %s: %w", path, err)
	}

	doc := &Document{
		Path:         path,
		Title:        documentTitle(res, path),
		HTML:         html,
		Frontmatter:  res.Frontmatter,
		Checksum:     checksum.Short(data),
		LastModified: modified,
	}
	if !outline.Empty() {
		doc.Outline = outline.Entries
	}
	if meta, ok := s.Lookup(ctx, path); ok {
		doc.Category = meta.Category
	}
	return doc, nil
}

// Raw returns the unrendered Markdown source of path.
func (s *Service) Raw(ctx context.Context, path string) ([]byte, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	data, err := s.deps.Fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("docservice: fetch %s: %w", path, err)
	}
	return data, nil
}

// Outline fetches path and returns its outline only.
func (s *Service) Outline(ctx context.Context, path string) (*OutlineResult, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	data, err := s.Raw(ctx, path)
	if err != nil {
		return nil, err
	}
	res := parser.Parse(data)
	out := &OutlineResult{Path: path, Title: documentTitle(res, path), Entries: []toc.Entry{}}
	if !res.NoTOC && !s.deps.Listing.Flags(path).NoTOC && !res.Outline.Empty() {
		out.Entries = res.Outline.Entries
	}
	return out, nil
}

// Search queries the document index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.deps.Index == nil {
		return nil, ErrSearchDisabled
	}
	if strings.TrimSpace(query) == "" {
		return []index.SearchResult{}, nil
	}
	results, err := s.deps.Index.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return results, nil
}

// ResolveImage applies the image path rules to src as referenced from
// documentPath.
func (s *Service) ResolveImage(src, documentPath string) string {
	return s.deps.Assets.Resolve(src, documentPath)
}

// CleanPath validates a document path taken from a request. It must be
// relative, free of ".." segments and not a URL.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "./")
	switch {
	case p == "":
		return "", fmt.Errorf("docservice: empty path: %w", apperr.ErrInvalidPath)
	case strings.HasPrefix(p, "/"), resolve.IsAbsolute(p), strings.Contains(p, "://"):
		return "", fmt.Errorf("docservice: %q is not relative: %w", p, apperr.ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("docservice: %q leaves the content root: %w", p, apperr.ErrInvalidPath)
		}
	}
	return p, nil
}

func documentTitle(res *parser.Result, path string) string {
	if res.Title != "" {
		return res.Title
	}
	return parser.TitleFromPath(path)
}
