package config

import "testing"

const validDoc = `
workflow:
  name: ai-news
  trigger:
    schedule: "0 * * * *"
  sources:
    - rss:
        feeds:
          - https://www.databricks.com/feed
        limit: 50
    - reddit:
        subreddits: [MachineLearning]
        sort: hot
  dedup:
    state_path: data/state.json
    title_threshold: 90
    title_weak_threshold: 80
    summary_threshold: 85
  filters:
    - name: drop-empty-titles
      rule: title == ""
      action: drop
  tagging:
    topic: artificial intelligence
    max_concurrency: 3
  archive:
    dir: data
  output:
    email:
      to: digest@example.com
      subject: AI digest
`

func TestParseValidDocument(t *testing.T) {
	doc, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	w := doc.Workflow
	if w.Name != "ai-news" {
		t.Fatalf("unexpected name %q", w.Name)
	}
	if len(w.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(w.Sources))
	}
	if w.Sources[0].RSS == nil || len(w.Sources[0].RSS.Feeds) != 1 {
		t.Fatalf("rss source not parsed: %+v", w.Sources[0])
	}
	if w.Sources[1].Reddit == nil || w.Sources[1].Reddit.Sort != "hot" {
		t.Fatalf("reddit source not parsed: %+v", w.Sources[1])
	}
	if w.Dedup.TitleThreshold != 90 || w.Dedup.SummaryThreshold != 85 {
		t.Fatalf("dedup thresholds not parsed: %+v", w.Dedup)
	}
	if w.Tagging == nil || w.Tagging.Topic != "artificial intelligence" {
		t.Fatalf("tagging config not parsed: %+v", w.Tagging)
	}
	if w.Output == nil || w.Output.Email == nil || w.Output.Email.To != "digest@example.com" {
		t.Fatalf("email output not parsed: %+v", w.Output)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing name", `
workflow:
  sources:
    - rss:
        feeds: [https://example.com/feed]
`},
		{"no sources", `
workflow:
  name: x
`},
		{"empty rss feeds", `
workflow:
  name: x
  sources:
    - rss:
        feeds: []
`},
		{"both source types", `
workflow:
  name: x
  sources:
    - rss:
        feeds: [https://example.com/feed]
      reddit:
        subreddits: [golang]
`},
		{"bad filter action", `
workflow:
  name: x
  sources:
    - rss:
        feeds: [https://example.com/feed]
  filters:
    - name: f
      rule: "true"
      action: maybe
`},
		{"tagging without topic", `
workflow:
  name: x
  sources:
    - rss:
        feeds: [https://example.com/feed]
  tagging:
    model: gpt-4o-mini
`},
		{"email without recipient", `
workflow:
  name: x
  sources:
    - rss:
        feeds: [https://example.com/feed]
  output:
    email:
      subject: hi
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
