package state

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, path
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	state, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(state.Feeds) != 0 {
		t.Fatalf("expected empty state, got %d feeds", len(state.Feeds))
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	saved := NewGlobalState()
	saved.SetFeed("https://example.com/feed", &FeedState{
		ProcessedURLs: []string{"https://example.com/a", "https://example.com/b"},
		SeenTitles:    []string{"ai is great"},
		SeenSummaries: []string{"a short body"},
		LastFetchedAt: "2026-08-27 10:00:00",
		LastBuildDate: "2026-08-27 09:55:00",
	})

	if err := store.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(saved, loaded) {
		t.Fatalf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", saved, loaded)
	}
}

func TestFileStoreCorruptFileStartsFresh(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}
	state, err := store.Load()
	if err != nil {
		t.Fatalf("expected corrupt state to load as empty, got error: %v", err)
	}
	if len(state.Feeds) != 0 {
		t.Fatalf("expected empty state after corruption, got %d feeds", len(state.Feeds))
	}
}

func TestFileStoreToleratesUnknownAndMissingKeys(t *testing.T) {
	store, path := newTestStore(t)
	doc := `{
  "feeds": {
    "https://example.com/feed": {
      "processed_urls": ["https://example.com/a"],
      "last_build_date": null,
      "some_future_key": {"x": 1}
    }
  },
  "another_future_key": true
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write state: %v", err)
	}
	state, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	feed := state.Feed("https://example.com/feed")
	if len(feed.ProcessedURLs) != 1 || feed.ProcessedURLs[0] != "https://example.com/a" {
		t.Fatalf("unexpected processed urls: %v", feed.ProcessedURLs)
	}
	if feed.LastFetchedAt != "" || feed.LastBuildDate != "" {
		t.Fatalf("expected missing/null timestamps to default to empty")
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	first := NewGlobalState()
	first.SetFeed("a", &FeedState{ProcessedURLs: []string{"u1"}})
	if err := store.Save(first); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	second := NewGlobalState()
	second.SetFeed("b", &FeedState{ProcessedURLs: []string{"u2"}})
	if err := store.Save(second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, ok := loaded.Feeds["a"]; ok {
		t.Fatalf("expected save to fully overwrite previous document")
	}
	if _, ok := loaded.Feeds["b"]; !ok {
		t.Fatalf("expected new document to be present")
	}
}

func TestFileStoreSaveFailureIsPersistError(t *testing.T) {
	dir := t.TempDir()
	// Using the directory itself as the target path makes the rename fail.
	store, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	saveErr := store.Save(NewGlobalState())
	if saveErr == nil {
		t.Fatalf("expected save to fail")
	}
	var persistErr *PersistError
	if !errors.As(saveErr, &persistErr) {
		t.Fatalf("expected *PersistError, got %T: %v", saveErr, saveErr)
	}
}

func TestFeedReturnsCopy(t *testing.T) {
	state := NewGlobalState()
	state.SetFeed("a", &FeedState{ProcessedURLs: []string{"u1"}})
	feed := state.Feed("a")
	feed.ProcessedURLs = append(feed.ProcessedURLs, "u2")
	if len(state.Feeds["a"].ProcessedURLs) != 1 {
		t.Fatalf("expected Feed to return a copy, original was mutated")
	}
}
