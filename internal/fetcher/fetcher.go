// Package fetcher downloads ranked posts from content sources.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"memer/internal/model"
)

// Supported source formats.
const (
	FormatJSON = "json"
	FormatRSS  = "rss"
)

const (
	defaultBaseURL = "https://www.reddit.com"
	userAgent      = "memer/1.0"
	maxBodySize    = 5 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source fetches the current top posts of a named source.
type Source interface {
	Fetch(ctx context.Context, name string) ([]model.Item, error)
}

// Options configures a Source.
type Options struct {
	BaseURL string
	Limit   int
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 100
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// New returns the Source for the given format.
func New(format string, client HTTPClient, opts Options) (Source, error) {
	switch format {
	case FormatJSON, "":
		return NewListing(client, opts), nil
	case FormatRSS:
		return NewFeed(client, opts), nil
	default:
		return nil, fmt.Errorf("unknown source format %q", format)
	}
}

type getter struct {
	client  HTTPClient
	timeout time.Duration
}

// get downloads rawURL and returns at most maxBodySize bytes of the body.
func (g getter) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func sourceURL(base, name, path string, limit int) string {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	return fmt.Sprintf("%s/r/%s/%s?%s", base, url.PathEscape(name), path, q.Encode())
}
