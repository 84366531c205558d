package mock

import (
	"context"

	"github.com/feedsift/feedsift/internal/sources/reddit"
)

type Fetcher struct {
	ItemsBySubreddit map[string][]reddit.Item
	ErrBySubreddit   map[string]error
}

func (f *Fetcher) Fetch(ctx context.Context, subreddit string, options reddit.FetchOptions) ([]reddit.Item, error) {
	_ = ctx
	if f.ErrBySubreddit != nil {
		if err, ok := f.ErrBySubreddit[subreddit]; ok {
			return nil, err
		}
	}
	items := f.ItemsBySubreddit[subreddit]
	if options.Limit > 0 && len(items) > options.Limit {
		return items[:options.Limit], nil
	}
	return items, nil
}
