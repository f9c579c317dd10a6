// Package watch triggers full rebuilds when site sources change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dainiki/internal/logfields"
)

// RebuildFunc runs one full build. Errors are logged and watching continues.
type RebuildFunc func(ctx context.Context) error

// Options configures Watch.
type Options struct {
	// Roots are the directories watched recursively.
	Roots []string
	// Ignore lists directories whose events never trigger a rebuild,
	// such as the output directory.
	Ignore   []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch starts an fsnotify watcher on every root and calls rebuild after
// each burst of changes has been quiet for the debounce interval. Rebuilds
// run on the watcher goroutine, so they never overlap. It returns when ctx
// is cancelled.
func Watch(ctx context.Context, opts Options, rebuild RebuildFunc) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	ignored := make([]string, 0, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			ignored = append(ignored, abs)
		}
	}
	isIgnored := func(path string) bool {
		abs, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		for _, dir := range ignored {
			if abs == dir || strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
				return true
			}
		}
		return false
	}

	for _, root := range opts.Roots {
		if err := addDirsRecursive(w, root, isIgnored); err != nil {
			return err
		}
		logger.Info("watcher: started", logfields.Path(root))
	}

	var rebuildTimer *time.Timer
	var rebuildCh <-chan time.Time

	scheduleRebuild := func() {
		if rebuildTimer == nil {
			rebuildTimer = time.NewTimer(debounce)
			rebuildCh = rebuildTimer.C
		} else {
			rebuildTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rebuildCh:
			rebuildTimer = nil
			rebuildCh = nil
			logger.Info("watcher: rebuilding")
			if err := rebuild(ctx); err != nil {
				logger.Error("watcher: rebuild failed", logfields.Error(err))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isIgnored(ev.Name) || isEditorTemp(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, isIgnored); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							logfields.Path(ev.Name),
							logfields.Error(addErr))
					} else {
						logger.Debug("watcher: watching new dir", logfields.Path(ev.Name))
					}
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: change", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
				scheduleRebuild()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", logfields.Error(watchErr))
		}
	}
}

// isEditorTemp reports swap and backup files editors write next to sources.
func isEditorTemp(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasPrefix(base, ".#")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, skip func(string) bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skip(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
