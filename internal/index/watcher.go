package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for every relevant change under the watched root.
// kind is one of "created", "updated", "deleted", "renamed"; path is absolute.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on root and reports file and directory
// changes until ctx is cancelled. Names in ignore are skipped at every level,
// as are the temporary files written by atomic saves.
//
// New directories created at runtime are automatically added to the watch
// list.
func Watch(ctx context.Context, root string, ignore []string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	skip := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		skip[name] = struct{}{}
	}

	if err := addDirsRecursive(w, root, skip); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if _, ignored := skip[name]; ignored || strings.HasPrefix(name, ".folio-tmp-") {
				continue
			}

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = "created"
				// Handle new directories: add to watcher.
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, skip); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			case ev.Op&fsnotify.Remove != 0:
				kind = "deleted"
			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create event.
				kind = "renamed"
			default:
				continue
			}

			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", kind))
			if cb != nil {
				cb(kind, ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, skip map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, ignored := skip[d.Name()]; ignored && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
