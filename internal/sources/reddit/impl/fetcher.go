package impl

import (
	"context"
	"fmt"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/feedsift/feedsift/internal/config"
	src "github.com/feedsift/feedsift/internal/sources/reddit"
)

type Fetcher struct {
	client *reddit.Client
}

// NewFetcher builds a reddit client. Without credentials it falls back to
// the read-only client, which is enough for public subreddit listings.
func NewFetcher(cfg config.RedditEnvConfig) (*Fetcher, error) {
	var client *reddit.Client
	var err error
	if cfg.ClientID != "" {
		client, err = reddit.NewClient(reddit.Credentials{
			ID:       cfg.ClientID,
			Secret:   cfg.ClientSecret,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	} else {
		client, err = reddit.NewReadonlyClient()
	}
	if err != nil {
		return nil, fmt.Errorf("create reddit client: %w", err)
	}
	return &Fetcher{client: client}, nil
}

func (f *Fetcher) Fetch(ctx context.Context, subreddit string, options src.FetchOptions) ([]src.Item, error) {
	limit := options.Limit
	if limit <= 0 {
		limit = 25
	}

	var posts []*reddit.Post
	var err error
	switch options.Sort {
	case "new":
		posts, _, err = f.client.Subreddit.NewPosts(ctx, subreddit, &reddit.ListOptions{Limit: limit})
	case "top":
		posts, _, err = f.client.Subreddit.TopPosts(ctx, subreddit, &reddit.ListPostOptions{
			ListOptions: reddit.ListOptions{Limit: limit},
			Time:        options.TimeFilter,
		})
	default:
		posts, _, err = f.client.Subreddit.HotPosts(ctx, subreddit, &reddit.ListOptions{Limit: limit})
	}
	if err != nil {
		return nil, fmt.Errorf("list r/%s posts: %w", subreddit, err)
	}

	items := make([]src.Item, 0, len(posts))
	for _, post := range posts {
		if post == nil {
			continue
		}
		if options.MinScore > 0 && post.Score < options.MinScore {
			continue
		}
		item := src.Item{
			ID:     post.FullID,
			Title:  post.Title,
			URL:    post.URL,
			Body:   post.Body,
			Author: post.Author,
			Score:  post.Score,
		}
		if post.Created != nil {
			item.CreatedAt = post.Created.Time
		}
		items = append(items, item)
	}
	return items, nil
}
