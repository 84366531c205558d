package rss

import (
	"context"
	"time"
)

// FetchOptions controls RSS fetch behavior.
type FetchOptions struct {
	Limit     int
	UserAgent string
}

// Item represents a single RSS or Atom entry.
type Item struct {
	ID          string
	Title       string
	Link        string
	Description string
	Author      string
	PublishedAt time.Time
}

// Feed is the parsed result of one fetch: the feed's own revision stamp
// plus its entries in document order.
type Feed struct {
	Title         string
	LastBuildDate time.Time
	Items         []Item
}

// Fetcher fetches and parses RSS/Atom feeds.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string, options FetchOptions) (*Feed, error)
}
