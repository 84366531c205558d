package dedup

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/feedsift/feedsift/internal/core"
	"github.com/feedsift/feedsift/internal/state"
)

const testSource = "https://example.com/feed"

func newTestEngine(t *testing.T, now time.Time) (*Engine, state.Store) {
	t.Helper()
	store, err := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"), nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	engine, err := New(store, Config{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine, store
}

func titles(outcome *core.DedupOutcome) []string {
	out := make([]string, 0, len(outcome.Accepted))
	for _, a := range outcome.Accepted {
		out = append(out, a.Title)
	}
	return out
}

func TestDeduplicateFirstBatch(t *testing.T) {
	engine, _ := newTestEngine(t, time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))
	batch := []*core.Article{
		{SourceID: testSource, Title: "AI is great", URL: "u1"},
		{SourceID: testSource, Title: "AI is great", URL: "u2"},
		{SourceID: testSource, Title: "AI is awesome", URL: "u1"},
		{SourceID: testSource, Title: "Something else", URL: "u3"},
	}

	outcome, err := engine.Deduplicate(context.Background(), testSource, batch, "")
	if err != nil {
		t.Fatalf("deduplicate failed: %v", err)
	}
	want := []string{"AI is great", "Something else"}
	if !reflect.DeepEqual(titles(outcome), want) {
		t.Fatalf("accepted = %v, want %v", titles(outcome), want)
	}
	if outcome.AcceptedCount != 2 || outcome.OriginalCount != 4 {
		t.Fatalf("unexpected counts: %+v", outcome)
	}
	if outcome.Skipped {
		t.Fatalf("expected skipped=false")
	}
	if outcome.Accepted[0].URL != "u1" || outcome.Accepted[1].URL != "u3" {
		t.Fatalf("unexpected accepted urls: %v, %v", outcome.Accepted[0].URL, outcome.Accepted[1].URL)
	}
}

func TestDeduplicateAssignsFingerprints(t *testing.T) {
	engine, _ := newTestEngine(t, time.Now())
	batch := []*core.Article{
		{SourceID: testSource, Title: "With URL", URL: "https://example.com/a"},
		{SourceID: testSource, Title: "Without URL", Summary: "body"},
	}
	outcome, err := engine.Deduplicate(context.Background(), testSource, batch, "")
	if err != nil {
		t.Fatalf("deduplicate failed: %v", err)
	}
	if len(outcome.Accepted) != 2 {
		t.Fatalf("expected both accepted, got %d", len(outcome.Accepted))
	}
	if outcome.Accepted[0].Fingerprint != "https://example.com/a" {
		t.Fatalf("expected url fingerprint, got %q", outcome.Accepted[0].Fingerprint)
	}
	if len(outcome.Accepted[1].Fingerprint) != 40 {
		t.Fatalf("expected sha1 fingerprint, got %q", outcome.Accepted[1].Fingerprint)
	}
}

func TestDeduplicateIdempotentAcrossRuns(t *testing.T) {
	runTime := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	engine, _ := newTestEngine(t, runTime)
	makeBatch := func() []*core.Article {
		return []*core.Article{
			{SourceID: testSource, Title: "First", URL: "u1"},
			{SourceID: testSource, Title: "Second", Summary: "no url here"},
		}
	}

	first, err := engine.Deduplicate(context.Background(), testSource, makeBatch(), "")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.AcceptedCount != 2 {
		t.Fatalf("expected 2 accepted on first run, got %d", first.AcceptedCount)
	}

	second, err := engine.Deduplicate(context.Background(), testSource, makeBatch(), "")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.AcceptedCount != 0 {
		t.Fatalf("expected 0 accepted on identical rerun, got %d: %v", second.AcceptedCount, titles(second))
	}
	if second.OriginalCount != 2 {
		t.Fatalf("expected original count preserved, got %d", second.OriginalCount)
	}
}

func TestDeduplicateSkipsUnchangedSourceVersion(t *testing.T) {
	engine, store := newTestEngine(t, time.Now())
	batch := []*core.Article{{SourceID: testSource, Title: "A", URL: "u1"}}

	if _, err := engine.Deduplicate(context.Background(), testSource, batch, "2026-08-27 09:00:00"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	before, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	outcome, err := engine.Deduplicate(context.Background(), testSource,
		[]*core.Article{{SourceID: testSource, Title: "B", URL: "u2"}}, "2026-08-27 09:00:00")
	if err != nil {
		t.Fatalf("skip run failed: %v", err)
	}
	if !outcome.Skipped {
		t.Fatalf("expected skipped=true")
	}
	if outcome.AcceptedCount != 0 || len(outcome.Accepted) != 0 {
		t.Fatalf("expected no accepted items on skip, got %+v", outcome)
	}
	if outcome.OriginalCount != 1 {
		t.Fatalf("expected original count of batch, got %d", outcome.OriginalCount)
	}

	after, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected no history mutation on skipped run")
	}
}

func TestDeduplicateSkipsOlderSourceVersion(t *testing.T) {
	engine, _ := newTestEngine(t, time.Now())
	if _, err := engine.Deduplicate(context.Background(), testSource, nil, "2026-08-27 09:00:00"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	outcome, err := engine.Deduplicate(context.Background(), testSource, nil, "2026-08-27 08:00:00")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !outcome.Skipped {
		t.Fatalf("expected marker older than stored to skip")
	}
}

func TestDeduplicateTimeLayer(t *testing.T) {
	runTime := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	engine, _ := newTestEngine(t, runTime)

	// Establish a watermark of 12:00:00.
	if _, err := engine.Deduplicate(context.Background(), testSource, nil, ""); err != nil {
		t.Fatalf("watermark run failed: %v", err)
	}

	outcome, err := engine.Deduplicate(context.Background(), testSource, []*core.Article{
		{SourceID: testSource, Title: "Totally novel", URL: "brand-new", PublishedAt: "2026-08-27 11:59:59"},
		{SourceID: testSource, Title: "Also novel", URL: "brand-new-2", PublishedAt: "2026-08-27 12:00:01"},
	}, "")
	if err != nil {
		t.Fatalf("deduplicate failed: %v", err)
	}
	want := []string{"Also novel"}
	if !reflect.DeepEqual(titles(outcome), want) {
		t.Fatalf("accepted = %v, want %v", titles(outcome), want)
	}
}

func TestDeduplicateEmptyBatchAdvancesWatermark(t *testing.T) {
	runTime := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	engine, store := newTestEngine(t, runTime)

	outcome, err := engine.Deduplicate(context.Background(), testSource, nil, "")
	if err != nil {
		t.Fatalf("deduplicate failed: %v", err)
	}
	if outcome.AcceptedCount != 0 || outcome.OriginalCount != 0 {
		t.Fatalf("unexpected counts for empty batch: %+v", outcome)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := loaded.Feed(testSource).LastFetchedAt; got != "2026-08-27 12:00:00" {
		t.Fatalf("expected watermark to advance on empty batch, got %q", got)
	}
}

func TestDeduplicateWeakTitleWithSummaryMatch(t *testing.T) {
	engine, _ := newTestEngine(t, time.Now())
	summary := "openai shipped a new flagship model with longer context and better reasoning"
	outcome, err := engine.Deduplicate(context.Background(), testSource, []*core.Article{
		{SourceID: testSource, Title: "openai ships new flagship model", URL: "u1", Summary: summary},
		// Title close but below the strong cutoff; identical summary corroborates.
		{SourceID: testSource, Title: "openai launches new flagship model", URL: "u2", Summary: summary},
		// Similar title but unrelated summary survives.
		{SourceID: testSource, Title: "openai launches new flagship models", URL: "u3", Summary: "a completely different story about something unrelated entirely"},
	}, "")
	if err != nil {
		t.Fatalf("deduplicate failed: %v", err)
	}
	for _, a := range outcome.Accepted {
		if a.URL == "u2" {
			t.Fatalf("expected weak-title+summary duplicate to be rejected")
		}
	}
}

func TestDeduplicatePreservesOtherSources(t *testing.T) {
	engine, store := newTestEngine(t, time.Now())
	if _, err := engine.Deduplicate(context.Background(), "source-a",
		[]*core.Article{{SourceID: "source-a", Title: "A", URL: "ua"}}, ""); err != nil {
		t.Fatalf("source-a run failed: %v", err)
	}
	if _, err := engine.Deduplicate(context.Background(), "source-b",
		[]*core.Article{{SourceID: "source-b", Title: "B", URL: "ub"}}, ""); err != nil {
		t.Fatalf("source-b run failed: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Feed("source-a").ProcessedURLs) != 1 || len(loaded.Feed("source-b").ProcessedURLs) != 1 {
		t.Fatalf("expected both sources' histories preserved: %+v", loaded.Feeds)
	}
}

func TestDeduplicateConcurrentSources(t *testing.T) {
	engine, store := newTestEngine(t, time.Now())
	sources := []string{"s1", "s2", "s3", "s4"}
	var wg sync.WaitGroup
	for _, id := range sources {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			batch := []*core.Article{{SourceID: id, Title: "title " + id, URL: "url-" + id}}
			if _, err := engine.Deduplicate(context.Background(), id, batch, ""); err != nil {
				t.Errorf("deduplicate %s failed: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	for _, id := range sources {
		if len(loaded.Feed(id).ProcessedURLs) != 1 {
			t.Fatalf("lost history for source %s under concurrency: %+v", id, loaded.Feeds)
		}
	}
}

func TestDeduplicateRequiresSourceID(t *testing.T) {
	engine, _ := newTestEngine(t, time.Now())
	if _, err := engine.Deduplicate(context.Background(), "", nil, ""); err == nil {
		t.Fatalf("expected missing source id to fail fast")
	}
}

type failingSaveStore struct {
	inner state.Store
}

func (s *failingSaveStore) Load() (*state.GlobalState, error) { return s.inner.Load() }
func (s *failingSaveStore) Save(g *state.GlobalState) error {
	return &state.PersistError{Path: "test", Err: errors.New("disk full")}
}

func TestDeduplicateSurfacesPersistFailureWithResults(t *testing.T) {
	inner, err := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"), nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	engine, err := New(&failingSaveStore{inner: inner}, Config{})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	outcome, err := engine.Deduplicate(context.Background(), testSource,
		[]*core.Article{{SourceID: testSource, Title: "A", URL: "u1"}}, "")
	if err == nil {
		t.Fatalf("expected persist failure to surface")
	}
	var persistErr *state.PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected *state.PersistError, got %T: %v", err, err)
	}
	if outcome == nil || outcome.AcceptedCount != 1 {
		t.Fatalf("expected in-memory results alongside the error, got %+v", outcome)
	}
}

func TestAcceptedNeverExceedsOriginal(t *testing.T) {
	engine, _ := newTestEngine(t, time.Now())
	batches := [][]*core.Article{
		nil,
		{{SourceID: testSource, Title: "one", URL: "u1"}},
		{
			{SourceID: testSource, Title: "two", URL: "u2"},
			{SourceID: testSource, Title: "two", URL: "u2-copy"},
			{SourceID: testSource, Title: "three", URL: "u3"},
		},
	}
	for _, batch := range batches {
		outcome, err := engine.Deduplicate(context.Background(), testSource, batch, "")
		if err != nil {
			t.Fatalf("deduplicate failed: %v", err)
		}
		if outcome.AcceptedCount > outcome.OriginalCount {
			t.Fatalf("accepted %d > original %d", outcome.AcceptedCount, outcome.OriginalCount)
		}
	}
}
