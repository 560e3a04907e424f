package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchedDirs are the data directories below the site root
var watchedDirs = []string{"events", "data", "proofwriting_workshop_data"}

// DataWatcher watches a local site checkout and keeps the Site current:
// changed JSON files are dropped from the fetch cache and a changed semester
// index is reloaded.
type DataWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	site        *Site
	root        string
	log         *zap.Logger
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewDataWatcher creates a watcher for the site rooted at root.
func NewDataWatcher(site *Site, root string, log *zap.Logger) (*DataWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &DataWatcher{
		watcher:     watcher,
		site:        site,
		root:        root,
		log:         log,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking; missing directories are skipped.
func (dw *DataWatcher) Start(ctx context.Context) error {
	dw.mu.Lock()
	if dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = true
	dw.mu.Unlock()

	for _, dir := range watchedDirs {
		full := filepath.Join(dw.root, dir)
		if err := dw.watcher.Add(full); err != nil {
			dw.log.Warn("Cannot watch data directory", zap.String("dir", full), zap.Error(err))
			continue
		}
		dw.log.Info("Watching data directory", zap.String("dir", full))
	}

	go dw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (dw *DataWatcher) Stop() {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.stopCh)
	<-dw.doneCh

	if err := dw.watcher.Close(); err != nil {
		dw.log.Error("Error closing data watcher", zap.Error(err))
	}
	dw.log.Info("Data watcher stopped")
}

func (dw *DataWatcher) run(ctx context.Context) {
	defer close(dw.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-dw.stopCh:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handleEvent(event)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.log.Error("Data watcher error", zap.Error(err))

		case <-ticker.C:
			dw.processDebounced(ctx)
		}
	}
}

func (dw *DataWatcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".json") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	dw.log.Debug("Data file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	dw.mu.Lock()
	dw.debounceMap[event.Name] = time.Now()
	dw.mu.Unlock()
}

// processDebounced applies the changes that have settled for debounceDur.
func (dw *DataWatcher) processDebounced(ctx context.Context) {
	dw.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range dw.debounceMap {
		if now.Sub(at) >= dw.debounceDur {
			settled = append(settled, path)
			delete(dw.debounceMap, path)
		}
	}
	dw.mu.Unlock()

	if len(settled) == 0 {
		return
	}

	var names []string
	reloadIndex := false
	for _, path := range settled {
		rel, err := filepath.Rel(dw.root, path)
		if err != nil {
			continue
		}
		name := filepath.ToSlash(rel)
		names = append(names, name)
		if name == IndexPath {
			reloadIndex = true
		}
	}

	if err := dw.site.Invalidate(ctx, names...); err != nil {
		dw.log.Error("Error invalidating cached resources", zap.Strings("resources", names), zap.Error(err))
	}
	if reloadIndex {
		dw.site.ReloadCatalog(ctx)
	}
	dw.log.Info("Data files reloaded", zap.Strings("resources", names), zap.Bool("index", reloadIndex))
}
