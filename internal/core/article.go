package core

import "time"

// TimeLayout is the canonical timestamp format carried on articles and in
// persisted state. All timestamp comparisons in the pipeline are plain string
// comparisons, which is why the layout must sort lexically.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders a time in the canonical layout, always UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Article is a single content item as it flows through the pipeline.
// Fields up to PublishedAt arrive from a source fetcher and are never
// modified; Fingerprint is assigned when the dedup engine accepts the
// article, and Tags when the tagging stage keeps it.
type Article struct {
	SourceID    string   `json:"source_id" yaml:"source_id"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
	Title       string   `json:"title" yaml:"title"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedAt string   `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// FeedResult is one source's fetch output: the candidate articles in the
// order the source returned them, plus the source's own version marker
// (lastBuildDate for RSS, empty when the source has no such notion).
type FeedResult struct {
	SourceID      string     `json:"source_id" yaml:"source_id"`
	LastBuildDate string     `json:"last_build_date,omitempty" yaml:"last_build_date,omitempty"`
	Articles      []*Article `json:"articles,omitempty" yaml:"articles,omitempty"`
}

// DedupOutcome is the per-source result of a dedup run. Accepted preserves
// the original arrival order of the candidates that survived.
type DedupOutcome struct {
	Accepted      []*Article `json:"accepted,omitempty" yaml:"accepted,omitempty"`
	AcceptedCount int        `json:"accepted_count" yaml:"accepted_count"`
	OriginalCount int        `json:"original_count" yaml:"original_count"`
	Skipped       bool       `json:"skipped" yaml:"skipped"`
	SourceVersion string     `json:"source_version,omitempty" yaml:"source_version,omitempty"`
}
