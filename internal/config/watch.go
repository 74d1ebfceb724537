package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/terrainbake/internal/logger"
)

// Watch reloads the config file at path whenever it changes and hands the
// result to onChange. It blocks until ctx is cancelled or the watcher fails.
// onChange runs on the calling goroutine, so reloads never overlap.
// The parent directory is watched so saves that rename over the file are seen.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	log := logger.Named("config")

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	log.Info("watching config", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != abs {
				continue
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadFile(abs)
			if err != nil {
				// Half-written files are common mid-save; wait for the next event.
				log.Warn("config reload failed", zap.Error(err))
				continue
			}
			log.Debug("config reloaded", zap.String("op", e.Op.String()))
			onChange(cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", abs, err)
		}
	}
}
