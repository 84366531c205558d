// Package dedup decides which candidate articles are genuinely new. It is
// the only stage with real algorithmic weight: a four-layer duplicate test
// (source version short-circuit, publish-time watermark, exact URL match,
// fuzzy title/summary match) backed by per-source durable history.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/feedsift/feedsift/internal/core"
	"github.com/feedsift/feedsift/internal/fingerprint"
	"github.com/feedsift/feedsift/internal/state"
	"github.com/feedsift/feedsift/internal/textutil"
)

// Thresholds are the fuzzy-layer cutoffs on the 0–100 similarity scale.
// A candidate is a duplicate when its title similarity exceeds Title, or
// when title similarity exceeds TitleWeak and summary similarity exceeds
// Summary at the same time.
type Thresholds struct {
	Title     float64
	TitleWeak float64
	Summary   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Title: 90, TitleWeak: 80, Summary: 85}
}

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	Thresholds Thresholds
	Logger     *slog.Logger
	// Now is the wall clock used for the watermark; overridable in tests.
	Now func() time.Time
}

// Engine runs the layered duplicate test for one source at a time.
//
// A per-source mutex serializes runs against the same source, since the
// read-modify-write on that source's history is not safe under
// interleaving. Runs against different sources proceed in parallel; the
// single stateMu around the load-mutate-save cycle keeps their saves from
// clobbering each other's entries.
type Engine struct {
	store      state.Store
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time

	stateMu sync.Mutex

	mu      sync.Mutex
	sources map[string]*sync.Mutex
}

func New(store state.Store, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	thresholds := cfg.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:      store,
		thresholds: thresholds,
		logger:     logger,
		now:        now,
		sources:    map[string]*sync.Mutex{},
	}, nil
}

// Deduplicate runs the layered duplicate test over candidates in arrival
// order and returns the accepted subset, fingerprints assigned. History for
// the source is updated and persisted before returning.
//
// When persistence fails the in-memory outcome is still returned alongside
// a *state.PersistError: the caller gets its results but must know the
// history was not durably updated, because re-running will then
// double-accept everything this run accepted.
func (e *Engine) Deduplicate(ctx context.Context, sourceID string, candidates []*core.Article, versionMarker string) (*core.DedupOutcome, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source id is required")
	}

	lock := e.sourceLock(sourceID)
	lock.Lock()
	defer lock.Unlock()

	logger := core.LoggerFromContext(ctx).With("source_id", sourceID)

	global, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load dedup history: %w", err)
	}
	history := global.Feed(sourceID)

	// Layer 0: source-level short-circuit. An unchanged version marker means
	// the whole batch was produced from a feed revision we already consumed.
	if versionMarker != "" && history.LastBuildDate != "" && versionMarker <= history.LastBuildDate {
		logger.Info("source unchanged, skipping dedup",
			"version_marker", versionMarker, "last_build_date", history.LastBuildDate)
		return &core.DedupOutcome{
			Skipped:       true,
			OriginalCount: len(candidates),
			SourceVersion: versionMarker,
		}, nil
	}

	seenURLs := make(map[string]bool, len(history.ProcessedURLs))
	for _, u := range history.ProcessedURLs {
		seenURLs[u] = true
	}

	outcome := &core.DedupOutcome{
		OriginalCount: len(candidates),
		SourceVersion: versionMarker,
	}

	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if e.isDuplicate(candidate, history, seenURLs) {
			continue
		}

		if candidate.URL != "" {
			seenURLs[candidate.URL] = true
			history.ProcessedURLs = append(history.ProcessedURLs, candidate.URL)
		}
		history.SeenTitles = append(history.SeenTitles, textutil.Normalize(candidate.Title))
		history.SeenSummaries = append(history.SeenSummaries, textutil.Normalize(candidate.Summary))

		candidate.Fingerprint = fingerprint.Assign(candidate)
		outcome.Accepted = append(outcome.Accepted, candidate)
	}
	outcome.AcceptedCount = len(outcome.Accepted)

	// The watermark advances on every completed run, empty batches included,
	// so items that arrive out of order behind the true latest accepted item
	// cannot be re-accepted later.
	runAt := core.FormatTimestamp(e.now())
	if runAt > history.LastFetchedAt {
		history.LastFetchedAt = runAt
	}
	if versionMarker != "" {
		history.LastBuildDate = versionMarker
	}

	if err := e.persist(sourceID, history); err != nil {
		logger.Error("dedup history not persisted; next run will re-accept this batch", "error", err)
		return outcome, err
	}

	logger.Info("dedup complete",
		"original", outcome.OriginalCount, "accepted", outcome.AcceptedCount)
	return outcome, nil
}

// isDuplicate applies the time, URL and fuzzy layers against the
// continuously updated working history.
func (e *Engine) isDuplicate(candidate *core.Article, history *state.FeedState, seenURLs map[string]bool) bool {
	// Time layer: the candidate predates the last successful fetch.
	if history.LastFetchedAt != "" && candidate.PublishedAt != "" && candidate.PublishedAt <= history.LastFetchedAt {
		return true
	}

	// URL layer: exact match against everything seen, this run included.
	if candidate.URL != "" && seenURLs[candidate.URL] {
		return true
	}

	// Fuzzy layer: compare against every earlier title/summary pair, both
	// carried over from history and accepted earlier in this batch.
	title := textutil.Normalize(candidate.Title)
	summary := textutil.Normalize(candidate.Summary)
	pairs := len(history.SeenTitles)
	if len(history.SeenSummaries) < pairs {
		pairs = len(history.SeenSummaries)
	}
	for i := 0; i < pairs; i++ {
		titleScore := textutil.Similarity(title, history.SeenTitles[i])
		if titleScore > e.thresholds.Title {
			return true
		}
		if titleScore > e.thresholds.TitleWeak &&
			textutil.Similarity(summary, history.SeenSummaries[i]) > e.thresholds.Summary {
			return true
		}
	}
	return false
}

// persist merges the updated history for one source into a freshly loaded
// document and saves it. Re-reading under stateMu keeps a concurrent run
// for another source from being clobbered by this save.
func (e *Engine) persist(sourceID string, history *state.FeedState) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	global, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("reload dedup history: %w", err)
	}
	global.SetFeed(sourceID, history)
	return e.store.Save(global)
}

func (e *Engine) sourceLock(sourceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.sources[sourceID]
	if !ok {
		lock = &sync.Mutex{}
		e.sources[sourceID] = lock
	}
	return lock
}
