package reddit

import (
	"context"
	"fmt"

	"github.com/feedsift/feedsift/internal/core"
)

// Source adapts one subreddit to the pipeline's source boundary. Reddit
// listings carry no feed-level revision stamp, so the version marker stays
// empty and dedup relies on the time, URL and fuzzy layers alone.
type Source struct {
	subreddit string
	fetcher   Fetcher
	options   FetchOptions
}

func NewSource(subreddit string, fetcher Fetcher, options FetchOptions) (*Source, error) {
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("reddit fetcher is required")
	}
	return &Source{subreddit: subreddit, fetcher: fetcher, options: options}, nil
}

func (s *Source) ID() string {
	return "reddit:r/" + s.subreddit
}

func (s *Source) Fetch(ctx context.Context) (*core.FeedResult, error) {
	items, err := s.fetcher.Fetch(ctx, s.subreddit, s.options)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", s.subreddit, err)
	}

	result := &core.FeedResult{SourceID: s.ID()}
	for _, item := range items {
		article := &core.Article{
			SourceID: s.ID(),
			Source:   "r/" + s.subreddit,
			Title:    item.Title,
			Summary:  item.Body,
			URL:      item.URL,
			Author:   item.Author,
		}
		if !item.CreatedAt.IsZero() {
			article.PublishedAt = core.FormatTimestamp(item.CreatedAt)
		}
		result.Articles = append(result.Articles, article)
	}
	return result, nil
}
