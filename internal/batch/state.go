package batch

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// WatchState records which drop-folder files were processed, keyed by file
// name.
type WatchState struct {
	Processed map[string]FileRecord `json:"processed"`
}

func LoadState(path string) (WatchState, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return WatchState{Processed: map[string]FileRecord{}}, nil
		}
		return WatchState{}, err
	}
	var state WatchState
	if err := json.Unmarshal(blob, &state); err != nil {
		return WatchState{}, err
	}
	if state.Processed == nil {
		state.Processed = map[string]FileRecord{}
	}
	return state, nil
}

func SaveState(path string, state WatchState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
