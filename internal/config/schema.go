package config

import (
	"fmt"
	"net/mail"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the top-level structure of a feedsift.yaml file.
type Document struct {
	Workflow Workflow `yaml:"workflow"`
}

// Workflow contains the complete pipeline configuration.
type Workflow struct {
	Name    string         `yaml:"name"`
	Trigger *CronTrigger   `yaml:"trigger,omitempty"`
	Sources []SourceConfig `yaml:"sources"`
	Dedup   DedupConfig    `yaml:"dedup,omitempty"`
	Filters []FilterRule   `yaml:"filters,omitempty"`
	Tagging *TaggingConfig `yaml:"tagging,omitempty"`
	Archive ArchiveConfig  `yaml:"archive,omitempty"`
	Output  *OutputConfig  `yaml:"output,omitempty"`
}

// CronTrigger defines a scheduled trigger.
type CronTrigger struct {
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone,omitempty"`
}

// SourceConfig wraps different source types; exactly one must be set.
type SourceConfig struct {
	RSS    *RSSSource    `yaml:"rss,omitempty"`
	Reddit *RedditSource `yaml:"reddit,omitempty"`
}

// RSSSource defines RSS/Atom feed configuration. Each feed URL is its own
// source for dedup purposes.
type RSSSource struct {
	Feeds     []string `yaml:"feeds"`
	Limit     int      `yaml:"limit,omitempty"`
	UserAgent string   `yaml:"user_agent,omitempty"`
}

// RedditSource defines subreddit listing configuration. Each subreddit is
// its own source for dedup purposes.
type RedditSource struct {
	Subreddits []string `yaml:"subreddits"`
	Limit      int      `yaml:"limit,omitempty"`
	Sort       string   `yaml:"sort,omitempty"`
	TimeFilter string   `yaml:"time_filter,omitempty"`
	MinScore   int      `yaml:"min_score,omitempty"`
}

// DedupConfig tunes the dedup engine. Zero thresholds use the defaults
// (90 strong title, 80 weak title, 85 summary).
type DedupConfig struct {
	StatePath          string  `yaml:"state_path,omitempty"`
	TitleThreshold     float64 `yaml:"title_threshold,omitempty"`
	TitleWeakThreshold float64 `yaml:"title_weak_threshold,omitempty"`
	SummaryThreshold   float64 `yaml:"summary_threshold,omitempty"`
}

// FilterRule defines a rule-based candidate filter using an expr expression
// over title, summary, url and source_id.
type FilterRule struct {
	Name   string `yaml:"name"`
	Rule   string `yaml:"rule"`
	Action string `yaml:"action"` // "drop" or "keep"
}

// TaggingConfig defines the LLM relevance filter and tag assignment.
type TaggingConfig struct {
	Topic              string   `yaml:"topic"`
	Model              string   `yaml:"model,omitempty"`
	Temperature        *float64 `yaml:"temperature,omitempty"`
	MaxArticles        int      `yaml:"max_articles,omitempty"`
	MaxConcurrency     int      `yaml:"max_concurrency,omitempty"`
	InvalidJSONRetries int      `yaml:"invalid_json_retries,omitempty"`
}

// ArchiveConfig defines where accepted articles are durably written.
type ArchiveConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// OutputConfig wraps run output types.
type OutputConfig struct {
	Email *EmailOutput `yaml:"email,omitempty"`
}

// EmailOutput defines the digest email recipient settings.
type EmailOutput struct {
	From    string `yaml:"from,omitempty"`
	To      string `yaml:"to"`
	Subject string `yaml:"subject,omitempty"`
}

// Parse unmarshals and validates a feedsift document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse feedsift document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) Validate() error {
	w := d.Workflow
	if w.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(w.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for i, source := range w.Sources {
		if err := source.validate(); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
	}
	if w.Trigger != nil {
		if w.Trigger.Schedule == "" {
			return fmt.Errorf("trigger schedule is required")
		}
		if w.Trigger.Timezone != "" {
			if _, err := time.LoadLocation(w.Trigger.Timezone); err != nil {
				return fmt.Errorf("invalid trigger timezone: %w", err)
			}
		}
	}
	for i, rule := range w.Filters {
		if rule.Name == "" || rule.Rule == "" {
			return fmt.Errorf("filter %d: name and rule are required", i)
		}
		if rule.Action != "drop" && rule.Action != "keep" {
			return fmt.Errorf("filter %d: action must be drop or keep, got %q", i, rule.Action)
		}
	}
	if w.Tagging != nil && w.Tagging.Topic == "" {
		return fmt.Errorf("tagging topic is required")
	}
	if w.Output != nil && w.Output.Email != nil {
		if w.Output.Email.To == "" {
			return fmt.Errorf("email output requires a recipient")
		}
		if _, err := mail.ParseAddressList(w.Output.Email.To); err != nil {
			return fmt.Errorf("invalid email recipient %q: %w", w.Output.Email.To, err)
		}
	}
	return nil
}

func (s *SourceConfig) validate() error {
	switch {
	case s.RSS != nil && s.Reddit != nil:
		return fmt.Errorf("exactly one source type must be set")
	case s.RSS != nil:
		if len(s.RSS.Feeds) == 0 {
			return fmt.Errorf("at least one rss feed is required")
		}
	case s.Reddit != nil:
		if len(s.Reddit.Subreddits) == 0 {
			return fmt.Errorf("at least one subreddit is required")
		}
	default:
		return fmt.Errorf("source type is required")
	}
	return nil
}
