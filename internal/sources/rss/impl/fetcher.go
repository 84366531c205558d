package impl

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedsift/feedsift/internal/retry"
	"github.com/feedsift/feedsift/internal/sources/rss"
)

type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	client := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Fetcher{client: client, parser: parser}
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string, options rss.FetchOptions) (*rss.Feed, error) {
	var parsed *gofeed.Feed
	err := retry.Do(ctx, retry.Config{Attempts: 3, BaseDelay: 200 * time.Millisecond}, func() error {
		feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			return err
		}
		parsed = feed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	result := &rss.Feed{Title: parsed.Title}
	if parsed.UpdatedParsed != nil {
		result.LastBuildDate = *parsed.UpdatedParsed
	} else if parsed.PublishedParsed != nil {
		result.LastBuildDate = *parsed.PublishedParsed
	}

	limit := options.Limit
	if limit <= 0 {
		limit = len(parsed.Items)
	}

	for _, entry := range parsed.Items {
		if len(result.Items) >= limit {
			break
		}
		item := rss.Item{
			ID:          entry.GUID,
			Title:       entry.Title,
			Link:        entry.Link,
			Description: entry.Description,
		}
		if entry.Author != nil {
			item.Author = entry.Author.Name
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = *entry.UpdatedParsed
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}
