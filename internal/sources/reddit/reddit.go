package reddit

import (
	"context"
	"time"
)

// FetchOptions controls a subreddit listing fetch.
type FetchOptions struct {
	Limit      int
	Sort       string // "hot", "new" or "top"
	TimeFilter string // top-only: "hour", "day", "week", "month", "year", "all"
	MinScore   int
}

// Item represents a single reddit post.
type Item struct {
	ID        string
	Title     string
	URL       string
	Body      string
	Author    string
	Score     int
	CreatedAt time.Time
}

// Fetcher retrieves posts from one subreddit.
type Fetcher interface {
	Fetch(ctx context.Context, subreddit string, options FetchOptions) ([]Item, error)
}
