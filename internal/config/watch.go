package config

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/okhani/dav/pkg/logger"
)

// Watch re-loads the config file named by DAV_CONFIG whenever it changes
// and invokes apply with the fresh config. It returns immediately when no
// config file is configured. The watcher stops when ctx is canceled.
//
// Only settings that can take effect on a running process should be acted
// on by apply; listen address and backend changes need a restart.
func Watch(ctx context.Context, apply func(*Config)) error {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return err
	}

	log := logger.Get().Named("config-watch")

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(ctx)
				if err != nil {
					log.Warn(ctx, "config reload failed", logger.Error(err))
					continue
				}
				log.Info(ctx, "config reloaded", logger.String("file", path))
				apply(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn(ctx, "config watch error", logger.Error(err))
			}
		}
	}()

	return nil
}
