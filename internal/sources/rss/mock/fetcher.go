package mock

import (
	"context"

	"github.com/feedsift/feedsift/internal/sources/rss"
)

type Fetcher struct {
	FeedsByURL map[string]*rss.Feed
	ErrByURL   map[string]error
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string, options rss.FetchOptions) (*rss.Feed, error) {
	_ = ctx
	if f.ErrByURL != nil {
		if err, ok := f.ErrByURL[feedURL]; ok {
			return nil, err
		}
	}
	feed := f.FeedsByURL[feedURL]
	if feed == nil {
		return &rss.Feed{}, nil
	}
	if options.Limit > 0 && len(feed.Items) > options.Limit {
		limited := *feed
		limited.Items = feed.Items[:options.Limit]
		return &limited, nil
	}
	return feed, nil
}
