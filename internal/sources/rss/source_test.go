package rss_test

import (
	"context"
	"testing"
	"time"

	"github.com/feedsift/feedsift/internal/sources/rss"
	"github.com/feedsift/feedsift/internal/sources/rss/mock"
)

func TestSourceConvertsFeedItems(t *testing.T) {
	published := time.Date(2026, 8, 27, 8, 30, 0, 0, time.UTC)
	built := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	fetcher := &mock.Fetcher{
		FeedsByURL: map[string]*rss.Feed{
			"https://example.com/feed": {
				Title:         "Example Blog",
				LastBuildDate: built,
				Items: []rss.Item{
					{Title: "Hello", Link: "https://example.com/hello", Description: "first post", PublishedAt: published},
					{Title: "No date", Link: "https://example.com/no-date"},
				},
			},
		},
	}

	source, err := rss.NewSource("https://example.com/feed", fetcher, rss.FetchOptions{})
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	if source.ID() != "https://example.com/feed" {
		t.Fatalf("unexpected source id %q", source.ID())
	}

	result, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if result.LastBuildDate != "2026-08-27 09:00:00" {
		t.Fatalf("unexpected version marker %q", result.LastBuildDate)
	}
	if len(result.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(result.Articles))
	}
	first := result.Articles[0]
	if first.SourceID != "https://example.com/feed" || first.Source != "Example Blog" {
		t.Fatalf("unexpected article source fields: %+v", first)
	}
	if first.PublishedAt != "2026-08-27 08:30:00" {
		t.Fatalf("unexpected published timestamp %q", first.PublishedAt)
	}
	if result.Articles[1].PublishedAt != "" {
		t.Fatalf("expected missing publish date to stay empty, got %q", result.Articles[1].PublishedAt)
	}
}

func TestSourcePropagatesFetchErrors(t *testing.T) {
	fetcher := &mock.Fetcher{ErrByURL: map[string]error{"https://down.example.com/feed": context.DeadlineExceeded}}
	source, err := rss.NewSource("https://down.example.com/feed", fetcher, rss.FetchOptions{})
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatalf("expected fetch error to propagate")
	}
}
