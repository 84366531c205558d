package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/feedsift/feedsift/internal/core"
)

const archiveFileName = "articles.jsonl"

// Archive appends accepted articles to an NDJSON log and records each URL in
// a SQLite index so a wiped dedup state cannot re-archive old content.
type Archive struct {
	dir   string
	index *Index
}

type archivedArticle struct {
	SourceID    string   `json:"source_id"`
	Source      string   `json:"source,omitempty"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary,omitempty"`
	URL         string   `json:"url,omitempty"`
	Author      string   `json:"author,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ArchivedAt  string   `json:"archived_at"`
}

func NewArchive(dir string) (*Archive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	index, err := NewIndex(filepath.Join(dir, "archive.db"))
	if err != nil {
		return nil, err
	}
	return &Archive{dir: dir, index: index}, nil
}

// Append writes the given articles to the NDJSON log, skipping any whose
// fingerprint the index has already recorded. It returns the number written.
func (a *Archive) Append(ctx context.Context, articles []*core.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	file, err := os.OpenFile(filepath.Join(a.dir, archiveFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open archive log: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	now := core.FormatTimestamp(time.Now())

	written := 0
	var newIDs []string
	for _, article := range articles {
		id := article.Fingerprint
		if id == "" {
			id = article.URL
		}
		if id != "" {
			seen, err := a.index.Has(ctx, id)
			if err != nil {
				return written, err
			}
			if seen {
				continue
			}
		}

		record := archivedArticle{
			SourceID:    article.SourceID,
			Source:      article.Source,
			Title:       article.Title,
			Summary:     article.Summary,
			URL:         article.URL,
			Author:      article.Author,
			PublishedAt: article.PublishedAt,
			Fingerprint: article.Fingerprint,
			Tags:        article.Tags,
			ArchivedAt:  now,
		}
		if err := encoder.Encode(record); err != nil {
			return written, fmt.Errorf("append archive record: %w", err)
		}
		written++
		if id != "" {
			newIDs = append(newIDs, id)
		}
	}

	if err := file.Sync(); err != nil {
		return written, fmt.Errorf("sync archive log: %w", err)
	}
	if err := a.index.MarkBatch(ctx, newIDs); err != nil {
		return written, err
	}
	return written, nil
}

func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.index.Close()
}
