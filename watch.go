package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"Sift/pkg/types"
)

const (
	watchDebounce = 300 * time.Millisecond
	watchInterval = time.Second
)

// FileWatcher re-runs extraction when its input changes. It watches the
// parent directory so that editors replacing the file by rename are seen.
type FileWatcher struct {
	app       *App
	file      string // absolute path, empty when following latestDir
	latestDir string
	dir       string

	debounce time.Duration
	limiter  *rate.Limiter
	onResult func(*types.Result)
}

// NewFileWatcher watches file, or the newest .pb file in latestDir when it is
// set. onResult receives every successful run.
func NewFileWatcher(app *App, file, latestDir string, onResult func(*types.Result)) (*FileWatcher, error) {
	w := &FileWatcher{
		app:      app,
		debounce: watchDebounce,
		limiter:  rate.NewLimiter(rate.Every(watchInterval), 1),
		onResult: onResult,
	}

	switch {
	case latestDir != "":
		dir, err := filepath.Abs(latestDir)
		if err != nil {
			return nil, err
		}
		w.latestDir = dir
		w.dir = dir
	case file != "":
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		w.file = abs
		w.dir = filepath.Dir(abs)
	default:
		return nil, ErrNoInput
	}
	return w, nil
}

// Run extracts once, then again after every settled change, until ctx is
// cancelled. Failed runs are logged and do not stop the watcher.
func (w *FileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	LogInfo("watch").Str("path", w.dir).Msg("Started watching")

	trigger := make(chan struct{}, 1)
	fire := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	fire()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			LogInfo("watch").Msg("Stopped watching")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			LogDebug("watch").Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")

			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, fire)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			LogError("watch").Err(err).Msg("Watcher error")

		case <-trigger:
			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			w.runOnce(ctx)
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.latestDir != "" {
		return strings.HasSuffix(event.Name, conversationExt)
	}
	return filepath.Clean(event.Name) == w.file
}

func (w *FileWatcher) runOnce(ctx context.Context) {
	path := w.file
	if w.latestDir != "" {
		latest, err := latestFile(w.latestDir, conversationExt)
		if err != nil {
			LogWarn("watch").Err(err).Msg("No input to extract")
			return
		}
		path = latest
	}

	result, err := w.app.ExtractFile(ctx, path)
	if err != nil {
		LogWarn("watch").Err(err).Str("file", path).Msg("Extraction failed")
		return
	}
	if w.onResult != nil {
		w.onResult(result)
	}
}
