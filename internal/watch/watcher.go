// Package watch reports changes made to the bound directory by other
// programs and notices when the directory disappears.
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

	"github.com/starford/folio/internal/capability"
	"github.com/starford/folio/internal/models"
)

const recordExt = ".json"

// Callback is called for every record change seen on disk.
type Callback func(models.RecordEvent)

// LostFunc is called once when the watched root or its records directory is
// removed or moved.
type LostFunc func(ctx context.Context)

// Binding reports the currently bound directory.
type Binding interface {
	Binding() *capability.Dir
}

// Follow watches whichever directory b has bound, switching watchers when the
// binding changes, until ctx is cancelled. The binding is checked every
// interval.
func Follow(ctx context.Context, b Binding, interval time.Duration, logger *slog.Logger, cb Callback, lost LostFunc) error {
	if interval <= 0 {
		interval = time.Second
	}

	var (
		current *capability.Dir
		cancel  context.CancelFunc
		done    chan struct{}
	)
	stop := func() {
		if cancel == nil {
			return
		}
		cancel()
		<-done
		cancel = nil
	}
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if cancel != nil {
			select {
			case <-done:
				// The watcher ended on its own; start over on this tick.
				cancel()
				cancel = nil
				current = nil
			default:
			}
		}
		if dir := b.Binding(); dir != current {
			stop()
			current = dir
			if dir != nil {
				var wctx context.Context
				wctx, cancel = context.WithCancel(ctx)
				done = make(chan struct{})
				go func(root string, done chan struct{}) {
					defer close(done)
					if err := Watch(wctx, root, logger, cb, lost); err != nil {
						logger.Warn("watcher: start failed",
							slog.String("root", root),
							slog.String("error", err.Error()))
						if lost != nil {
							lost(wctx)
						}
					}
				}(dir.Path(), done)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Watch starts an fsnotify watcher on root and its records tree and reports
// record changes until ctx is cancelled or the tree goes away.
//
// Directories created at runtime are added to the watch list and the records
// already in them are reported as created.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb Callback, lost LostFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	records := filepath.Join(root, capability.RecordsDir)
	if err := w.Add(root); err != nil {
		return err
	}
	if err := addDirsRecursive(w, records); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	emit := func(kind, absPath string) {
		ev, ok := recordEvent(root, kind, absPath)
		if !ok {
			return
		}
		logger.Debug("watcher: record changed",
			slog.String("subdir", ev.Subdir),
			slog.String("name", ev.Name),
			slog.String("op", kind))
		if cb != nil {
			cb(ev)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped", slog.String("root", root))
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			// --- Root or records directory gone: the binding is dead ---
			if (absPath == root || absPath == records) && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Warn("watcher: directory lost", slog.String("path", absPath))
				if lost != nil {
					lost(ctx)
				}
				return nil
			}

			if !within(records, absPath) {
				continue
			}

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					walkRecords(absPath, func(p string) { emit(models.RecordCreated, p) })
					continue
				}
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				emit(models.RecordCreated, absPath)
			case ev.Op&fsnotify.Write != 0:
				emit(models.RecordUpdated, absPath)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a Create.
				emit(models.RecordDeleted, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// recordEvent maps a file path under root to a record event. Hidden files,
// including in-flight temp files, and non-record files are ignored.
func recordEvent(root, kind, absPath string) (models.RecordEvent, bool) {
	base := filepath.Base(absPath)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, recordExt) {
		return models.RecordEvent{}, false
	}
	rel, err := filepath.Rel(root, filepath.Dir(absPath))
	if err != nil {
		return models.RecordEvent{}, false
	}
	return models.RecordEvent{
		Kind:   kind,
		Subdir: filepath.ToSlash(rel),
		Name:   strings.TrimSuffix(base, recordExt),
		Source: models.SourceDisk,
	}, true
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// walkRecords calls fn for every regular file below dir.
func walkRecords(dir string, fn func(path string)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		fn(path)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
