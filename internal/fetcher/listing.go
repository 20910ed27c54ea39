package fetcher

import (
	"context"
	"encoding/json"
	"fmt"

	"memer/internal/model"
)

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
	URL       string  `json:"url"`
	SelfText  string  `json:"selftext"`
	Over18    bool    `json:"over_18"`
	Permalink string  `json:"permalink"`
	Subreddit string  `json:"subreddit"`
}

// Listing reads the JSON "hot" listing of a subreddit.
type Listing struct {
	getter
	baseURL string
	limit   int
}

// NewListing creates a Listing source.
func NewListing(client HTTPClient, opts Options) *Listing {
	opts = opts.withDefaults()
	return &Listing{
		getter:  getter{client: client, timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		limit:   opts.Limit,
	}
}

// Fetch downloads the hot posts of the named subreddit.
func (l *Listing) Fetch(ctx context.Context, name string) ([]model.Item, error) {
	body, err := l.get(ctx, sourceURL(l.baseURL, name, "hot.json", l.limit))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	var resp listing
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	items := make([]model.Item, 0, len(resp.Data.Children))
	for _, c := range resp.Data.Children {
		items = append(items, c.Data.item(name))
	}
	return items, nil
}

func (p post) item(source string) model.Item {
	content := p.URL
	if content == "" {
		content = p.SelfText
	}
	if p.Subreddit != "" {
		source = p.Subreddit
	}
	return model.Item{
		Title:     p.Title,
		Score:     p.Score,
		Content:   content,
		Sensitive: p.Over18,
		Permalink: p.Permalink,
		Source:    source,
	}
}
