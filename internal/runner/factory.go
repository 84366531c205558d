package runner

import (
	"fmt"
	"log/slog"

	"github.com/feedsift/feedsift/internal/config"
	"github.com/feedsift/feedsift/internal/dedup"
	"github.com/feedsift/feedsift/internal/filter"
	llmopenai "github.com/feedsift/feedsift/internal/llm/openai"
	"github.com/feedsift/feedsift/internal/outputs/email"
	"github.com/feedsift/feedsift/internal/outputs/email/smtp"
	"github.com/feedsift/feedsift/internal/sources"
	redditsrc "github.com/feedsift/feedsift/internal/sources/reddit"
	redditimpl "github.com/feedsift/feedsift/internal/sources/reddit/impl"
	rsssrc "github.com/feedsift/feedsift/internal/sources/rss"
	rssimpl "github.com/feedsift/feedsift/internal/sources/rss/impl"
	"github.com/feedsift/feedsift/internal/state"
	"github.com/feedsift/feedsift/internal/storage"
	"github.com/feedsift/feedsift/internal/tagging"
)

const defaultStatePath = "feedsift_state.json"

// Build assembles a Pipeline from the YAML document and environment config.
// The returned cleanup func releases held resources (the archive index) and
// must be called when the pipeline is done.
func Build(doc *config.Document, env config.EnvConfig, logger *slog.Logger) (*Pipeline, func() error, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("config document is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	workflow := doc.Workflow

	statePath := env.StatePath
	if statePath == "" {
		statePath = workflow.Dedup.StatePath
	}
	if statePath == "" {
		statePath = defaultStatePath
	}
	store, err := state.NewFileStore(statePath, logger)
	if err != nil {
		return nil, nil, err
	}

	engine, err := dedup.New(store, dedup.Config{
		Thresholds: thresholdsFromConfig(workflow.Dedup),
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}

	srcs, err := buildSources(workflow, env)
	if err != nil {
		return nil, nil, err
	}

	filters, err := filter.NewChain(workflow.Filters)
	if err != nil {
		return nil, nil, err
	}

	var tagger *tagging.Tagger
	if workflow.Tagging != nil {
		if env.OpenAI.APIKey == "" {
			return nil, nil, fmt.Errorf("tagging requires OPENAI_API_KEY")
		}
		client := llmopenai.NewClient(env.OpenAI)
		tagger, err = tagging.New(workflow.Tagging, client, env.OpenAI.Model, env.OpenAI.Temperature)
		if err != nil {
			return nil, nil, err
		}
	}

	var archive *storage.Archive
	if workflow.Archive.Dir != "" {
		archive, err = storage.NewArchive(workflow.Archive.Dir)
		if err != nil {
			return nil, nil, err
		}
	}

	var sender email.Sender
	if workflow.Output != nil && workflow.Output.Email != nil {
		sender, err = smtp.NewSender(env.SMTP)
		if err != nil {
			if archive != nil {
				_ = archive.Close()
			}
			return nil, nil, fmt.Errorf("email output: %w", err)
		}
	}

	pipeline, err := New(Config{
		Workflow:                 workflow,
		Sources:                  srcs,
		Engine:                   engine,
		Filters:                  filters,
		Tagger:                   tagger,
		Archive:                  archive,
		Sender:                   sender,
		Logger:                   logger,
		AllowPartialSourceErrors: env.AllowPartialSourceErrors,
	})
	if err != nil {
		if archive != nil {
			_ = archive.Close()
		}
		return nil, nil, err
	}

	cleanup := func() error {
		if archive != nil {
			return archive.Close()
		}
		return nil
	}
	return pipeline, cleanup, nil
}

func buildSources(workflow config.Workflow, env config.EnvConfig) ([]sources.Source, error) {
	var srcs []sources.Source
	var redditFetcher redditsrc.Fetcher

	for _, sc := range workflow.Sources {
		switch {
		case sc.RSS != nil:
			userAgent := sc.RSS.UserAgent
			if userAgent == "" {
				userAgent = env.RSS.UserAgent
			}
			fetcher := rssimpl.NewFetcher(env.RSS.HTTPTimeout, userAgent)
			for _, feedURL := range sc.RSS.Feeds {
				src, err := rsssrc.NewSource(feedURL, fetcher, rsssrc.FetchOptions{
					Limit:     sc.RSS.Limit,
					UserAgent: userAgent,
				})
				if err != nil {
					return nil, err
				}
				srcs = append(srcs, src)
			}
		case sc.Reddit != nil:
			if redditFetcher == nil {
				fetcher, err := redditimpl.NewFetcher(env.Reddit)
				if err != nil {
					return nil, err
				}
				redditFetcher = fetcher
			}
			for _, subreddit := range sc.Reddit.Subreddits {
				src, err := redditsrc.NewSource(subreddit, redditFetcher, redditsrc.FetchOptions{
					Limit:      sc.Reddit.Limit,
					Sort:       sc.Reddit.Sort,
					TimeFilter: sc.Reddit.TimeFilter,
					MinScore:   sc.Reddit.MinScore,
				})
				if err != nil {
					return nil, err
				}
				srcs = append(srcs, src)
			}
		}
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	return srcs, nil
}

func thresholdsFromConfig(cfg config.DedupConfig) dedup.Thresholds {
	thresholds := dedup.DefaultThresholds()
	if cfg.TitleThreshold > 0 {
		thresholds.Title = cfg.TitleThreshold
	}
	if cfg.TitleWeakThreshold > 0 {
		thresholds.TitleWeak = cfg.TitleWeakThreshold
	}
	if cfg.SummaryThreshold > 0 {
		thresholds.Summary = cfg.SummaryThreshold
	}
	return thresholds
}
