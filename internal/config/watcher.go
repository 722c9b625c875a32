package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch re-reads the config file whenever it changes on disk and invokes
// onChange with the freshly loaded config. Edits that fail to parse are
// logged and skipped; the previous config stays in effect. Watch blocks
// until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which rename-and-replace (vim, sed -i) keep triggering events.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload skipped", zap.String("path", path), zap.Error(err))
				continue
			}
			logger.Info("config reloaded",
				zap.Float64("approval_threshold", cfg.Pipeline.ApprovalThreshold),
				zap.Int("history_window", cfg.Pipeline.HistoryWindow))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
