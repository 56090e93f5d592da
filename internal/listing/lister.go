package listing

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/starford/furyload/internal/github"
	"github.com/starford/furyload/internal/storage"
)

// Lister returns the names of the Markdown files directly inside dir.
type Lister interface {
	ListMarkdown(ctx context.Context, dir string) ([]string, error)
}

// GitHubLister lists directories through the GitHub contents API.
type GitHubLister struct {
	client *github.Client
}

// NewGitHubLister creates a Lister backed by the GitHub contents API.
func NewGitHubLister(client *github.Client) *GitHubLister {
	return &GitHubLister{client: client}
}

// ListMarkdown implements Lister.
func (l *GitHubLister) ListMarkdown(ctx context.Context, dir string) ([]string, error) {
	entries, err := l.client.ListDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(e.Name, ".md") {
			out = append(out, e.Name)
		}
	}
	return out, nil
}

// LocalLister lists directories of a local content checkout.
type LocalLister struct {
	store storage.Provider
}

// NewLocalLister creates a Lister backed by a local directory.
func NewLocalLister(store storage.Provider) *LocalLister {
	return &LocalLister{store: store}
}

// ListMarkdown implements Lister. Files in subdirectories are not included.
func (l *LocalLister) ListMarkdown(_ context.Context, dir string) ([]string, error) {
	dir = strings.Trim(dir, "/")
	files, err := l.store.List(dir)
	if err != nil {
		return nil, fmt.Errorf("listing: %s: %w", dir, err)
	}
	var out []string
	for _, f := range files {
		if path.Dir(f.Path) == dir {
			out = append(out, path.Base(f.Path))
		}
	}
	return out, nil
}
