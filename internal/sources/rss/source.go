package rss

import (
	"context"
	"fmt"

	"github.com/feedsift/feedsift/internal/core"
)

// Source adapts one feed URL to the pipeline's source boundary. The feed
// URL doubles as the source ID, and the feed's lastBuildDate (or Atom
// updated stamp) becomes the source version marker.
type Source struct {
	feedURL string
	fetcher Fetcher
	options FetchOptions
}

func NewSource(feedURL string, fetcher Fetcher, options FetchOptions) (*Source, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("rss fetcher is required")
	}
	return &Source{feedURL: feedURL, fetcher: fetcher, options: options}, nil
}

func (s *Source) ID() string {
	return s.feedURL
}

func (s *Source) Fetch(ctx context.Context) (*core.FeedResult, error) {
	feed, err := s.fetcher.Fetch(ctx, s.feedURL, s.options)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.feedURL, err)
	}

	result := &core.FeedResult{SourceID: s.feedURL}
	if !feed.LastBuildDate.IsZero() {
		result.LastBuildDate = core.FormatTimestamp(feed.LastBuildDate)
	}
	for _, item := range feed.Items {
		article := &core.Article{
			SourceID: s.feedURL,
			Source:   feed.Title,
			Title:    item.Title,
			Summary:  item.Description,
			URL:      item.Link,
			Author:   item.Author,
		}
		if !item.PublishedAt.IsZero() {
			article.PublishedAt = core.FormatTimestamp(item.PublishedAt)
		}
		result.Articles = append(result.Articles, article)
	}
	return result, nil
}
