// Package state owns the durable dedup history: one JSON document mapping
// each source to the URLs, normalized titles and summaries it has already
// emitted, plus its time watermark and last seen source version marker.
package state

import "fmt"

// FeedState is the persisted dedup history for a single source.
//
// ProcessedURLs only ever grows and LastFetchedAt only ever moves forward;
// there is no eviction. SeenTitles and SeenSummaries are index-aligned
// normalized pairs, in insertion order, because later candidates are
// compared against every earlier pair.
type FeedState struct {
	ProcessedURLs []string `json:"processed_urls"`
	SeenTitles    []string `json:"seen_titles,omitempty"`
	SeenSummaries []string `json:"seen_summaries,omitempty"`
	LastFetchedAt string   `json:"last_fetched_at"`
	LastBuildDate string   `json:"last_build_date"`
}

// Clone returns a deep copy so a dedup run can mutate its working history
// without touching the loaded document.
func (f *FeedState) Clone() *FeedState {
	if f == nil {
		return &FeedState{}
	}
	clone := &FeedState{
		LastFetchedAt: f.LastFetchedAt,
		LastBuildDate: f.LastBuildDate,
	}
	clone.ProcessedURLs = append([]string(nil), f.ProcessedURLs...)
	clone.SeenTitles = append([]string(nil), f.SeenTitles...)
	clone.SeenSummaries = append([]string(nil), f.SeenSummaries...)
	return clone
}

// GlobalState is the full persisted document, keyed by source ID.
type GlobalState struct {
	Feeds map[string]*FeedState `json:"feeds"`
}

// NewGlobalState returns an empty, usable state document.
func NewGlobalState() *GlobalState {
	return &GlobalState{Feeds: map[string]*FeedState{}}
}

// Feed returns the history for a source, or an empty one if the source has
// never been seen. The returned value is a copy; write it back with SetFeed.
func (g *GlobalState) Feed(sourceID string) *FeedState {
	if g.Feeds == nil {
		return &FeedState{}
	}
	return g.Feeds[sourceID].Clone()
}

// SetFeed replaces a single source's history, leaving all other entries
// untouched.
func (g *GlobalState) SetFeed(sourceID string, feed *FeedState) {
	if g.Feeds == nil {
		g.Feeds = map[string]*FeedState{}
	}
	g.Feeds[sourceID] = feed
}

// Store is durable persistence for the dedup history.
//
// Load never fails on a missing or corrupt document: both come back as an
// empty state so a damaged file degrades to "start fresh" instead of
// aborting the run. Save fully overwrites the persisted document and must
// be atomic with respect to concurrent readers; a failed Save surfaces as a
// *PersistError because losing history re-accepts duplicates on the next run.
type Store interface {
	Load() (*GlobalState, error)
	Save(state *GlobalState) error
}

// PersistError wraps a failed state write. Callers must treat it as a
// correctness failure, not a cosmetic one: the run's results stand, but the
// history backing them was not durably recorded.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist state to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
