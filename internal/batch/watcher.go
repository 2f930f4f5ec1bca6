package batch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultSettle = 2 * time.Second
	stateFileName = ".ssfinder-state.json"
)

// ProcessFunc handles one input file and writes its result to output.
type ProcessFunc func(ctx context.Context, input, output string) (FileRecord, error)

// Watcher processes batch files dropped into a directory. Files are picked up
// once they have not changed for Settle, and a file is processed again only
// when its modification time changes.
type Watcher struct {
	Dir     string
	OutDir  string
	Settle  time.Duration
	Process ProcessFunc

	statePath string
	state     WatchState
	pending   map[string]time.Time
}

func NewWatcher(dir, outDir string, process ProcessFunc) (*Watcher, error) {
	if outDir == "" {
		outDir = filepath.Join(dir, "out")
	}
	statePath := filepath.Join(outDir, stateFileName)
	state, err := LoadState(statePath)
	if err != nil {
		return nil, fmt.Errorf("load watch state: %w", err)
	}
	return &Watcher{
		Dir:       dir,
		OutDir:    outDir,
		Settle:    DefaultSettle,
		Process:   process,
		statePath: statePath,
		state:     state,
		pending:   map[string]time.Time{},
	}, nil
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}

	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.mark(filepath.Join(w.Dir, e.Name()), time.Time{})
		}
	}
	log.Printf("batch watching dir=%s out=%s pending=%d", w.Dir, w.OutDir, len(w.pending))

	tick := w.Settle / 2
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.mark(event.Name, time.Now())
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("batch watcher error: %v", err)
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) mark(path string, at time.Time) {
	if !IsBatchFile(path) {
		return
	}
	w.pending[path] = at
}

func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for path, at := range w.pending {
		if now.Sub(at) < w.Settle {
			continue
		}
		delete(w.pending, path)
		w.handle(ctx, path)
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	name := filepath.Base(path)
	if prev, ok := w.state.Processed[name]; ok && prev.ModTime.Equal(info.ModTime()) {
		return
	}
	rec, err := w.Process(ctx, path, OutputPath(w.OutDir, path))
	if err != nil {
		log.Printf("batch file=%s failed: %v", name, err)
		rec.Error = err.Error()
	}
	rec.ModTime = info.ModTime()
	rec.ProcessedAt = time.Now().UTC()
	w.state.Processed[name] = rec
	if err := SaveState(w.statePath, w.state); err != nil {
		log.Printf("batch save state: %v", err)
	}
}

// State returns a copy of the processed-file state.
func (w *Watcher) State() WatchState {
	out := WatchState{Processed: make(map[string]FileRecord, len(w.state.Processed))}
	for k, v := range w.state.Processed {
		out.Processed[k] = v
	}
	return out
}

// IsBatchFile reports whether path looks like an input sheet rather than an
// output, temp or hidden file.
func IsBatchFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".csv" && ext != ".xlsx" {
		return false
	}
	return !strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), OutputSuffix)
}
