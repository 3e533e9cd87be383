// Package watcher ingests videos dropped into the inbox directory. New files
// are debounced until their size stops changing, then registered as assets.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/adcanvas/adapt-agent/internal/catalog"
)

// settleDelay is how long a file must stay quiet before it is considered
// fully copied. Drops from network shares arrive in bursts of writes.
const settleDelay = 2 * time.Second

// AssetRegistrar is the slice of the catalog service the watcher needs.
type AssetRegistrar interface {
	RegisterAsset(ctx context.Context, path string) (*catalog.Asset, error)
}

// InboxWatcher watches one directory, non-recursively, for new video files.
type InboxWatcher struct {
	dir       string
	registrar AssetRegistrar
	logger    *slog.Logger
	settle    time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewInboxWatcher(dir string, registrar AssetRegistrar, logger *slog.Logger) *InboxWatcher {
	return &InboxWatcher{
		dir:       dir,
		registrar: registrar,
		logger:    logger,
		settle:    settleDelay,
		pending:   make(map[string]*time.Timer),
	}
}

// Watch blocks until ctx is cancelled, registering settled video files.
func (w *InboxWatcher) Watch(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}

	w.logger.Info("inbox watcher started", "dir", w.dir)

	// Pick up files that were already waiting when the agent started.
	w.scanExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopping")
			w.cancelPending()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (w *InboxWatcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("could not scan inbox", "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.schedule(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

// schedule (re)arms the settle timer for a path. Every write pushes the timer
// out, so registration fires only after the file has been quiet.
func (w *InboxWatcher) schedule(ctx context.Context, path string) {
	if !catalog.IsVideoFile(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.register(ctx, path)
	})
}

func (w *InboxWatcher) register(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return // deleted before it settled
	}

	asset, err := w.registrar.RegisterAsset(ctx, path)
	if err != nil {
		w.logger.Warn("inbox file not registered", "file", filepath.Base(path), "error", err)
		return
	}
	w.logger.Info("inbox file registered", "asset_id", asset.ID, "file", asset.Filename)
}

func (w *InboxWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
