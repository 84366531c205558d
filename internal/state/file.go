package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore persists the global state as a single JSON file. Saves go
// through a temp file in the same directory followed by an atomic rename,
// so a concurrent reader sees either the old document or the new one,
// never a partial write.
type FileStore struct {
	path   string
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}, nil
}

func (s *FileStore) Load() (*GlobalState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewGlobalState(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state GlobalState
	if err := json.Unmarshal(data, &state); err != nil {
		// Corruption degrades to a fresh state rather than failing the run.
		s.logger.Warn("state file is unparsable, starting fresh", "path", s.path, "error", err)
		return NewGlobalState(), nil
	}
	if state.Feeds == nil {
		state.Feeds = map[string]*FeedState{}
	}
	for id, feed := range state.Feeds {
		if feed == nil {
			state.Feeds[id] = &FeedState{}
		}
	}
	return &state, nil
}

func (s *FileStore) Save(state *GlobalState) error {
	if state == nil {
		state = NewGlobalState()
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}
