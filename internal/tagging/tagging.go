package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/feedsift/feedsift/internal/config"
	"github.com/feedsift/feedsift/internal/core"
	"github.com/feedsift/feedsift/internal/llm"
	"github.com/feedsift/feedsift/internal/llmutil"
)

var RETRIES = 3

// Tagger filters articles for topical relevance and assigns tags, one model
// round-trip per stage per article.
type Tagger struct {
	config       config.TaggingConfig
	client       llm.Client
	defaultModel string
	defaultTemp  *float64
}

type relevanceResponse struct {
	Relevant bool   `json:"relevant"`
	Reason   string `json:"reason"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

func New(cfg *config.TaggingConfig, client llm.Client, defaultModel string, defaultTemp *float64) (*Tagger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tagging config is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("tagging topic is required")
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required for tagging")
	}
	return &Tagger{
		config:       *cfg,
		client:       client,
		defaultModel: defaultModel,
		defaultTemp:  defaultTemp,
	}, nil
}

// Process returns the articles judged relevant to the configured topic, with
// Tags populated. Articles beyond the max_articles cap pass through untouched
// rather than being dropped.
func (t *Tagger) Process(ctx context.Context, articles []*core.Article) ([]*core.Article, error) {
	logger := core.LoggerFromContext(ctx)

	candidates := articles
	var overflow []*core.Article
	if t.config.MaxArticles > 0 && len(articles) > t.config.MaxArticles {
		candidates = articles[:t.config.MaxArticles]
		overflow = articles[t.config.MaxArticles:]
		logger.Warn("tagging capped article batch",
			slog.Int("considered", len(candidates)),
			slog.Int("passed_through", len(overflow)))
	}

	keep, err := t.evaluate(ctx, logger, candidates)
	if err != nil {
		return nil, err
	}

	result := make([]*core.Article, 0, len(candidates)+len(overflow))
	for i, article := range candidates {
		if keep[i] {
			result = append(result, article)
		}
	}
	return append(result, overflow...), nil
}

func (t *Tagger) evaluate(ctx context.Context, logger *slog.Logger, articles []*core.Article) ([]bool, error) {
	keep := make([]bool, len(articles))

	maxConcurrency := t.config.MaxConcurrency
	if maxConcurrency <= 1 || len(articles) <= 1 {
		for i, article := range articles {
			relevant, err := t.evaluateOne(ctx, logger, article)
			if err != nil {
				return nil, err
			}
			keep[i] = relevant
		}
		return keep, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	errCh := make(chan error, 1)

loop:
	for i, article := range articles {
		i, article := i, article
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			relevant, err := t.evaluateOne(ctx, logger, article)
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				cancel()
				return
			}
			keep[i] = relevant
		}()
	}

	wg.Wait()
	select {
	case err := <-errCh:
		return nil, err
	default:
		return keep, nil
	}
}

func (t *Tagger) evaluateOne(ctx context.Context, logger *slog.Logger, article *core.Article) (bool, error) {
	model := llmutil.ModelOrDefault(t.config.Model, t.defaultModel)
	temperature := t.config.Temperature
	if temperature == nil {
		temperature = t.defaultTemp
	}
	decodeRetries := t.config.InvalidJSONRetries
	if decodeRetries == 0 {
		decodeRetries = RETRIES
	}

	var relevance relevanceResponse
	_, err := llmutil.ChatSystemUserWithRetries(
		ctx,
		t.client,
		model,
		relevanceSystemPrompt(t.config.Topic),
		articlePrompt(article),
		decodeRetries,
		llmutil.JSONDecoder(&relevance),
		temperature,
	)
	if err != nil {
		return false, fmt.Errorf("judge relevance of %q: %w", article.Title, err)
	}
	if !relevance.Relevant {
		logger.Debug("tagging dropped off-topic article",
			slog.String("title", article.Title),
			slog.String("reason", relevance.Reason))
		return false, nil
	}

	var tags tagsResponse
	_, err = llmutil.ChatSystemUserWithRetries(
		ctx,
		t.client,
		model,
		taggingSystemPrompt(t.config.Topic),
		articlePrompt(article),
		decodeRetries,
		llmutil.JSONDecoder(&tags),
		temperature,
	)
	if err != nil {
		return false, fmt.Errorf("tag %q: %w", article.Title, err)
	}
	article.Tags = tags.Tags
	return true, nil
}

func relevanceSystemPrompt(topic string) string {
	return fmt.Sprintf(`You judge whether a news article is relevant to the topic %q.
Respond with JSON only: {"relevant": true|false, "reason": "<one sentence>"}`, topic)
}

func taggingSystemPrompt(topic string) string {
	return fmt.Sprintf(`You assign short lowercase tags to a news article about %q.
Respond with JSON only: {"tags": ["tag1", "tag2"]} with at most five tags.`, topic)
}

func articlePrompt(article *core.Article) string {
	return fmt.Sprintf("Title: %s\nSummary: %s\nURL: %s", article.Title, article.Summary, article.URL)
}
