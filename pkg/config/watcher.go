package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smarchetti/ticketdesk/pkg/debounce"
)

// reloadSettle coalesces the event bursts editors produce when
// rewriting a file.
const reloadSettle = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands
// the new config to a callback.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	debounce *debounce.Debouncer
	logger   *slog.Logger
	done     chan struct{}
}

// Watch starts watching path. onChange runs, debounced, after every
// successful reload. A nil logger falls back to slog.Default().
func Watch(path string, onChange func(Config), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors typically replace the file, which
	// drops a watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		fsw:      fsw,
		debounce: debounce.New(reloadSettle),
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func(Config)) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.debounce.Trigger(func() {
				cfg, err := Load(w.path)
				if err != nil {
					w.logger.Warn("config reload failed", "path", w.path, "error", err)
					return
				}
				onChange(cfg)
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	w.debounce.Cancel()
	return w.fsw.Close()
}
