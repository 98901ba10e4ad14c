package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

// reloadDebounce batches the burst of events editors emit for one save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads path whenever it changes and hands every valid result to
// apply. Invalid files are logged and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, apply func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigWatchFailed, "failed to resolve config path")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigWatchFailed, "failed to create file watcher")
	}
	defer w.Close()

	// Watch the directory: editors replace files by rename.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigWatchFailed, "failed to watch config directory").
			WithContext("path", abs)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))

		case <-timer.C:
			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("config reload rejected", zap.String("path", abs), zap.Error(err))
				continue
			}
			logger.Info("config reloaded", zap.String("path", abs))
			apply(cfg)
		}
	}
}
