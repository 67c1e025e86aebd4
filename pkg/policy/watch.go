package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Loader produces a decision table, typically by re-reading the config file.
type Loader func() (Table, error)

// Watcher reloads an Engine's table whenever a file changes.
type Watcher struct {
	path     string
	load     Loader
	engine   *Engine
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a Watcher for path. A nil logger discards output.
func NewWatcher(path string, load Loader, engine *Engine, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		load:     load,
		engine:   engine,
		debounce: DefaultDebounce,
		logger:   logger,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that editors replacing the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(w.path)
	w.logger.Debug("watching policy config", zap.String("path", w.path))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("policy watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	t, err := w.load()
	if err != nil {
		w.logger.Warn("policy reload failed, keeping current table", zap.Error(err))
		return
	}
	if err := w.engine.SetTable(t); err != nil {
		w.logger.Warn("policy table rejected, keeping current table", zap.Error(err))
		return
	}
	w.logger.Info("policy table reloaded", zap.String("path", w.path))
}
