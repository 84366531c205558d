package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/feedsift/feedsift/internal/config"
	"github.com/feedsift/feedsift/internal/core"
	"github.com/feedsift/feedsift/internal/dedup"
	"github.com/feedsift/feedsift/internal/digest"
	"github.com/feedsift/feedsift/internal/filter"
	"github.com/feedsift/feedsift/internal/outputs/email"
	"github.com/feedsift/feedsift/internal/sources"
	"github.com/feedsift/feedsift/internal/storage"
	"github.com/feedsift/feedsift/internal/tagging"
	"github.com/feedsift/feedsift/internal/trigger"
)

const defaultFetchConcurrency = 4

// Config wires a Pipeline. Engine and at least one source are required;
// everything else is optional and skipped when nil.
type Config struct {
	Workflow                 config.Workflow
	Sources                  []sources.Source
	Engine                   *dedup.Engine
	Filters                  *filter.Chain
	Tagger                   *tagging.Tagger
	Archive                  *storage.Archive
	Sender                   email.Sender
	Logger                   *slog.Logger
	AllowPartialSourceErrors bool
	FetchConcurrency         int
}

// Pipeline runs one workflow end to end: fetch, dedup, filter, tag, archive
// and deliver.
type Pipeline struct {
	workflow     config.Workflow
	sources      []sources.Source
	engine       *dedup.Engine
	filters      *filter.Chain
	tagger       *tagging.Tagger
	archive      *storage.Archive
	sender       email.Sender
	digest       *digest.Builder
	logger       *slog.Logger
	allowPartial bool
	concurrency  int
}

// SourceReport records the fetch+dedup result for one source.
type SourceReport struct {
	SourceID string
	Outcome  *core.DedupOutcome
	Err      error
}

// Report summarizes one completed run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Sources     []SourceReport
	Accepted    []*core.Article
	Archived    int
	EmailSent   bool
}

func New(cfg Config) (*Pipeline, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("dedup engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &Pipeline{
		workflow:     cfg.Workflow,
		sources:      cfg.Sources,
		engine:       cfg.Engine,
		filters:      cfg.Filters,
		tagger:       cfg.Tagger,
		archive:      cfg.Archive,
		sender:       cfg.Sender,
		digest:       digest.NewBuilder(),
		logger:       logger,
		allowPartial: cfg.AllowPartialSourceErrors,
		concurrency:  concurrency,
	}, nil
}

// Run executes one pass over all sources. When partial source errors are
// allowed, failed sources are reported and the rest of the run proceeds;
// otherwise the first source error fails the run after all fetches finish.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     fmt.Sprintf("run-%d", time.Now().UnixNano()),
		StartedAt: time.Now().UTC(),
	}

	logger := p.logger.With("run_id", report.RunID, "workflow", p.workflow.Name)
	ctx = core.WithRunID(ctx, report.RunID)
	ctx = core.WithLogger(ctx, logger)

	tracer := otel.Tracer("feedsift/runner")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("run.id", report.RunID),
		attribute.String("workflow.name", p.workflow.Name),
	)
	defer span.End()

	logger.Info("run started", "sources", len(p.sources))

	report.Sources = p.collect(ctx)

	var accepted []*core.Article
	for _, sr := range report.Sources {
		if sr.Err != nil {
			if !p.allowPartial {
				span.SetStatus(codes.Error, sr.Err.Error())
				report.CompletedAt = time.Now().UTC()
				return report, fmt.Errorf("source %s: %w", sr.SourceID, sr.Err)
			}
			logger.Warn("source failed, continuing", "source_id", sr.SourceID, "error", sr.Err)
			continue
		}
		if sr.Outcome.Skipped {
			logger.Info("source skipped, feed unchanged",
				"source_id", sr.SourceID, "version", sr.Outcome.SourceVersion)
			continue
		}
		accepted = append(accepted, sr.Outcome.Accepted...)
	}
	span.SetAttributes(attribute.Int("articles.accepted", len(accepted)))

	var err error
	if p.filters != nil {
		if accepted, err = p.filters.Apply(ctx, accepted); err != nil {
			span.SetStatus(codes.Error, err.Error())
			report.CompletedAt = time.Now().UTC()
			return report, err
		}
	}
	if p.tagger != nil && len(accepted) > 0 {
		tagCtx, tagSpan := tracer.Start(ctx, "pipeline.tagging")
		accepted, err = p.tagger.Process(tagCtx, accepted)
		tagSpan.End()
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			report.CompletedAt = time.Now().UTC()
			return report, fmt.Errorf("tagging: %w", err)
		}
	}
	report.Accepted = accepted

	if p.archive != nil {
		report.Archived, err = p.archive.Append(ctx, accepted)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			report.CompletedAt = time.Now().UTC()
			return report, fmt.Errorf("archive: %w", err)
		}
	}

	if p.sender != nil && p.workflow.Output != nil && p.workflow.Output.Email != nil {
		if err := p.deliver(ctx, accepted, report.StartedAt); err != nil {
			span.SetStatus(codes.Error, err.Error())
			report.CompletedAt = time.Now().UTC()
			return report, fmt.Errorf("deliver digest: %w", err)
		}
		report.EmailSent = true
	}

	report.CompletedAt = time.Now().UTC()
	logger.Info("run completed",
		"accepted", len(report.Accepted),
		"archived", report.Archived,
		"email_sent", report.EmailSent,
		"duration", report.CompletedAt.Sub(report.StartedAt))
	return report, nil
}

// collect fetches and deduplicates every source with bounded parallelism.
// Different sources never contend on the same dedup history, so this is safe.
func (p *Pipeline) collect(ctx context.Context) []SourceReport {
	tracer := otel.Tracer("feedsift/runner")
	reports := make([]SourceReport, len(p.sources))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for i, source := range p.sources {
		i, source := i, source
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			srcCtx := core.WithSourceID(ctx, source.ID())
			srcCtx, span := tracer.Start(srcCtx, "source.collect")
			span.SetAttributes(attribute.String("source.id", source.ID()))
			defer span.End()

			reports[i] = p.collectOne(srcCtx, source)
			if reports[i].Err != nil {
				span.SetStatus(codes.Error, reports[i].Err.Error())
			}
		}()
	}
	wg.Wait()
	return reports
}

func (p *Pipeline) collectOne(ctx context.Context, source sources.Source) SourceReport {
	report := SourceReport{SourceID: source.ID()}

	result, err := source.Fetch(ctx)
	if err != nil {
		report.Err = err
		return report
	}

	outcome, err := p.engine.Deduplicate(ctx, result.SourceID, result.Articles, result.LastBuildDate)
	if err != nil {
		// A persist failure still yields the accepted batch; surface both so
		// the caller decides whether to use it.
		report.Outcome = outcome
		report.Err = err
		return report
	}
	report.Outcome = outcome
	return report
}

func (p *Pipeline) deliver(ctx context.Context, accepted []*core.Article, runAt time.Time) error {
	body, err := p.digest.HTML(accepted, runAt)
	if err != nil {
		return err
	}
	cfg := p.workflow.Output.Email
	subject := cfg.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s digest %s", p.workflow.Name, runAt.UTC().Format("2006-01-02"))
	}
	return p.sender.Send(ctx, email.Message{
		From:    cfg.From,
		To:      cfg.To,
		Subject: subject,
		Body:    body,
	})
}

// Listen runs the pipeline for every trigger event until the channel closes
// or the context is done.
func (p *Pipeline) Listen(ctx context.Context, events <-chan trigger.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			p.logger.Info("trigger fired", "workflow", event.Workflow, "time", event.Timestamp)
			if _, err := p.Run(ctx); err != nil {
				p.logger.Error("run failed", "error", err)
			}
		}
	}
}
