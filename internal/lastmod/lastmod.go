// Package lastmod looks up the last modification time of a document.
//
// Where the time comes from depends on how the content is hosted: the
// GitHub commit history, a Last-Modified header from the raw host, or the
// file system. Every provider reports a miss as (zero, false) and never
// fails the caller.
package lastmod

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/furyload/internal/github"
	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/storage"
)

// Provider returns the modification time of a document path.
type Provider interface {
	LastModified(ctx context.Context, path string) (time.Time, bool)
}

// GitHubCommits uses the date of the latest commit touching the path.
type GitHubCommits struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubCommits creates a commit-history provider.
func NewGitHubCommits(client *github.Client, logger *slog.Logger) *GitHubCommits {
	return &GitHubCommits{client: client, logger: logger}
}

// LastModified implements Provider.
func (p *GitHubCommits) LastModified(ctx context.Context, path string) (time.Time, bool) {
	t, ok, err := p.client.LatestCommitTime(ctx, path)
	if err != nil {
		p.logger.Debug("lastmod: commit lookup failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return time.Time{}, false
	}
	return t, ok
}

// HTTPHead issues a HEAD request for the raw document URL and reads the
// Last-Modified header.
type HTTPHead struct {
	urls   *resolve.Resolver
	client *http.Client
}

// NewHTTPHead creates a provider that asks the raw host. A nil client uses
// a client with a short timeout.
func NewHTTPHead(urls *resolve.Resolver, client *http.Client) *HTTPHead {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPHead{urls: urls, client: client}
}

// LastModified implements Provider.
func (p *HTTPHead) LastModified(ctx context.Context, path string) (time.Time, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.urls.URL(path), nil)
	if err != nil {
		return time.Time{}, false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return time.Time{}, false
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, false
	}
	t, err := http.ParseTime(resp.Header.Get("Last-Modified"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Local reads the modification time of a file in a local content directory.
type Local struct {
	store storage.Provider
}

// NewLocal creates a file system provider.
func NewLocal(store storage.Provider) *Local {
	return &Local{store: store}
}

// LastModified implements Provider.
func (p *Local) LastModified(_ context.Context, path string) (time.Time, bool) {
	t, err := p.store.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Chain asks each provider in order and returns the first hit.
type Chain []Provider

// LastModified implements Provider.
func (c Chain) LastModified(ctx context.Context, path string) (time.Time, bool) {
	for _, p := range c {
		if ctx.Err() != nil {
			return time.Time{}, false
		}
		if t, ok := p.LastModified(ctx, path); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
