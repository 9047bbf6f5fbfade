package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ace1928/docforge/internal/logfields"
)

// DocsWatcher monitors the docs tree and triggers a debounced rebuild when
// documentation files change.
type DocsWatcher struct {
	docsDir    string
	watcher    *fsnotify.Watcher
	onChange   func()
	stopChan   chan struct{}
	changeChan chan struct{}
	debounce   time.Duration
}

// NewDocsWatcher creates a watcher over docsDir. onChange fires after the
// debounce window closes behind a burst of events.
func NewDocsWatcher(docsDir string, debounce time.Duration, onChange func()) (*DocsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(docsDir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve docs path: %w", err)
	}

	return &DocsWatcher{
		docsDir:    abs,
		watcher:    watcher,
		onChange:   onChange,
		stopChan:   make(chan struct{}),
		changeChan: make(chan struct{}, 1),
		debounce:   debounce,
	}, nil
}

// Start begins monitoring the docs tree recursively.
func (w *DocsWatcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.docsDir); err != nil {
		return err
	}

	slog.Info("Watching docs tree", logfields.Path(w.docsDir))
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *DocsWatcher) Stop() error {
	close(w.stopChan)
	return w.watcher.Close()
}

// addRecursive registers the directory and every subdirectory, skipping
// hidden entries. fsnotify does not recurse on its own.
func (w *DocsWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *DocsWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			// New directories must be added to the watch set.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if err := w.addRecursive(event.Name); err == nil {
					slog.Debug("Watching new path", logfields.Path(event.Name))
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				slog.Debug("Docs change detected", logfields.Path(event.Name))
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Docs watcher error", logfields.Error(err))
		}
	}
}

func (w *DocsWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.changeChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.onChange)
		}
	}
}

func (w *DocsWatcher) trigger() {
	select {
	case w.changeChan <- struct{}{}:
	default:
		// Change already pending.
	}
}
