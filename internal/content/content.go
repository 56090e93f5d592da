// Package content fetches raw Markdown documents from the raw-content host
// or from a local checkout of the content repository.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/starford/furyload/internal/apperr"
	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/storage"
)

// maxDocumentSize caps a single fetched document.
const maxDocumentSize = 8 << 20

// Fetcher returns the raw bytes of a document path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// StatusError is returned for a non-2xx response of the raw host.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Unwrap maps 404 to apperr.ErrNotFound and everything else to
// apperr.ErrUpstream.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return apperr.ErrUpstream
}

// HTTPFetcher downloads documents from <root>/<path>.
type HTTPFetcher struct {
	urls   *resolve.Resolver
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for the raw host behind urls. A nil
// client uses one with a 15 second timeout.
func NewHTTPFetcher(urls *resolve.Resolver, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFetcher{urls: urls, client: client}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	u := f.urls.URL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("content: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content: fetch %s: %w: %w", path, apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	return data, nil
}

// LocalFetcher reads documents from a local content directory.
type LocalFetcher struct {
	store storage.Provider
}

// NewLocalFetcher creates a fetcher over store.
func NewLocalFetcher(store storage.Provider) *LocalFetcher {
	return &LocalFetcher{store: store}
}

// Fetch implements Fetcher.
func (f *LocalFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	data, err := f.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("content: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("content: %s: %w", path, err)
	}
	return data, nil
}
