// Package github reads directory listings and commit history of the content
// repository through the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/starford/furyload/internal/apperr"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 15 * time.Second

// Entry is one item of a repository directory.
type Entry struct {
	Name string
	Path string
	Type string // "file" or "dir"
	SHA  string
}

// Client wraps the go-github client for one repository.
type Client struct {
	gh          *gh.Client
	owner       string
	repo        string
	branch      string
	rateLimiter *RateLimiter
}

// Options configures NewClient.
type Options struct {
	Owner  string
	Repo   string
	Branch string
	// Token is optional; anonymous requests share a much lower quota.
	Token string
	// RequestsPerSecond throttles outgoing calls. Zero uses ProactiveRate.
	RequestsPerSecond float64
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string
	// HTTPClient overrides the transport. Ignored when Token is set.
	HTTPClient *http.Client
}

// NewClient creates a GitHub API client for the configured repository.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = DefaultTimeout
	}

	client := gh.NewClient(httpClient)
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github: parse base url: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{
		gh:          client,
		owner:       opts.Owner,
		repo:        opts.Repo,
		branch:      opts.Branch,
		rateLimiter: NewRateLimiter(opts.RequestsPerSecond),
	}, nil
}

// Repository returns "owner/repo".
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// ListDirectory returns the entries of dir on the configured branch.
func (c *Client) ListDirectory(ctx context.Context, dir string) ([]Entry, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("github: rate limit wait: %w", err)
	}

	var opts *gh.RepositoryContentGetOptions
	if c.branch != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: c.branch}
	}
	file, entries, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, strings.Trim(dir, "/"), opts)
	c.updateRateLimit(resp)
	if err != nil {
		return nil, c.wrapError(err, "list "+dir)
	}
	if file != nil {
		return nil, fmt.Errorf("github: %s is a file, not a directory", dir)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			Name: e.GetName(),
			Path: e.GetPath(),
			Type: e.GetType(),
			SHA:  e.GetSHA(),
		})
	}
	return out, nil
}

// LatestCommitTime returns the committer date of the newest commit touching
// path. ok is false when the file has no history.
func (c *Client) LatestCommitTime(ctx context.Context, path string) (t time.Time, ok bool, err error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return time.Time{}, false, fmt.Errorf("github: rate limit wait: %w", err)
	}

	opts := &gh.CommitsListOptions{
		SHA:         c.branch,
		Path:        strings.TrimPrefix(path, "/"),
		ListOptions: gh.ListOptions{PerPage: 1},
	}
	commits, resp, err := c.gh.Repositories.ListCommits(ctx, c.owner, c.repo, opts)
	c.updateRateLimit(resp)
	if err != nil {
		return time.Time{}, false, c.wrapError(err, "list commits "+path)
	}
	if len(commits) == 0 {
		return time.Time{}, false, nil
	}

	date := commits[0].GetCommit().GetCommitter().GetDate()
	if date.IsZero() {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

func (c *Client) updateRateLimit(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, operation string) error {
	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   rateLimitErr.Rate.Reset.Time,
			Remaining: rateLimitErr.Rate.Remaining,
			Limit:     rateLimitErr.Rate.Limit,
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		if ghErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("github: %s: %w", operation, apperr.ErrNotFound)
		}
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			Operation:  operation,
		}
	}

	return fmt.Errorf("github: %s: %w", operation, err)
}
