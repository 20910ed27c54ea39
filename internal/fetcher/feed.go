package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"

	"github.com/mmcdole/gofeed"

	"memer/internal/model"
)

// Feed reads the RSS "hot" feed of a subreddit. Feeds carry no score, so items
// are ranked by their position.
type Feed struct {
	getter
	baseURL string
	limit   int
}

// NewFeed creates a Feed source.
func NewFeed(client HTTPClient, opts Options) *Feed {
	opts = opts.withDefaults()
	return &Feed{
		getter:  getter{client: client, timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		limit:   opts.Limit,
	}
}

// Fetch downloads and parses the named subreddit's feed.
func (f *Feed) Fetch(ctx context.Context, name string) ([]model.Item, error) {
	body, err := f.get(ctx, sourceURL(f.baseURL, name, "hot/.rss", f.limit))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	entries := feed.Items
	if len(entries) > f.limit {
		entries = entries[:f.limit]
	}

	items := make([]model.Item, 0, len(entries))
	for i, it := range entries {
		content := it.Link
		if content == "" {
			content = it.Content
		}
		if content == "" {
			content = it.Description
		}
		items = append(items, model.Item{
			Title:     it.Title,
			Score:     float64(len(entries) - i),
			Content:   content,
			Sensitive: isSensitive(it),
			Permalink: ItemGUID(it),
			Source:    name,
		})
	}
	return items, nil
}

// ItemGUID returns a stable identifier for a feed entry: its link, then its
// GUID, then a SHA-256 hash of title and content.
func ItemGUID(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Content))
	return fmt.Sprintf("sha256:%x", h[:16])
}

func isSensitive(item *gofeed.Item) bool {
	return slices.ContainsFunc(item.Categories, func(c string) bool {
		return strings.EqualFold(c, "nsfw")
	})
}
