package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for changes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reruns an incremental build whenever a matching source changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	sourceDir string
	pattern   string
	outputDir string
	opts      Options
	debounce  time.Duration
	log       *builder

	mu     sync.Mutex
	timer  *time.Timer
	builds chan struct{}
}

// Watch builds once and then rebuilds on every change under sourceDir until
// ctx is cancelled. Build failures are logged and do not stop the watcher.
func Watch(ctx context.Context, sourceDir, pattern, outputDir string, opts Options, debounce time.Duration) error {
	w, err := NewWatcher(sourceDir, pattern, outputDir, opts, debounce)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx)
}

// NewWatcher creates a watcher for sourceDir.
func NewWatcher(sourceDir, pattern, outputDir string, opts Options, debounce time.Duration) (*Watcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("glob %q: %w", pattern, ErrBadPattern)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:   fsWatcher,
		sourceDir: sourceDir,
		pattern:   pattern,
		outputDir: outputDir,
		opts:      opts,
		debounce:  debounce,
		log:       newBuilder(opts),
		builds:    make(chan struct{}, 1),
	}, nil
}

// Run performs the initial build and then processes events until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watchDirRecursive(w.sourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.sourceDir, err)
	}
	w.log.logInfo("watching %s for %s", w.sourceDir, w.pattern)
	w.rebuild(ctx)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case <-w.builds:
			w.rebuild(ctx)

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.logError("watcher error: %v", err)
		}
	}
}

// watchDirRecursive adds root and its subdirectories, skipping hidden
// directories and the output tree.
func (w *Watcher) watchDirRecursive(root string) error {
	out, _ := filepath.Abs(w.outputDir)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if abs, _ := filepath.Abs(path); abs == out && path != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchDirRecursive(event.Name); err != nil {
				w.log.logWarn("cannot watch %s: %v", event.Name, err)
			}
			w.schedule()
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	rel, err := filepath.Rel(w.sourceDir, event.Name)
	if err != nil {
		return
	}
	if ok, _ := doublestar.Match(w.pattern, filepath.ToSlash(rel)); !ok {
		return
	}
	w.log.logInfo("changed: %s", event.Name)
	w.schedule()
}

// schedule queues a rebuild once changes have been quiet for the debounce
// interval.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.builds <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) rebuild(ctx context.Context) {
	result, err := TranspileAll(ctx, w.sourceDir, w.pattern, w.outputDir, w.opts)
	if w.opts.AfterBuild != nil {
		w.opts.AfterBuild(result, err)
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
