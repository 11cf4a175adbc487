package config

import (
	"io"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WarnOnChange watches path and logs a warning the first time it changes,
// then stops. The registry and safety policy loaded from a config file are
// immutable for the life of a process, so a change on disk is surfaced as an
// operator warning rather than a live reload.
func WarnOnChange(path string, logger *slog.Logger) (io.Closer, error) {
	if path == "" {
		return nopCloser{}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					logger.Warn("config file changed on disk, restart to apply", slog.String("path", path))
					watcher.Close()
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
