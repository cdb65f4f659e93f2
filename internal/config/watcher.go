package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/shellbot-ai/shellbot/internal/logging"
)

// reloadDelay coalesces the event bursts editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk and hands
// the fresh config to the callback. The callback runs on the watcher
// goroutine; swapping the policy into an engine between evaluations is the
// caller's job.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	onChange func(*Config)
	done     chan struct{}
	log      zerolog.Logger
}

// Watch starts watching the config file at path. The parent directory is
// watched rather than the file itself, because editors replace files by
// rename and the original watch would die with the old inode.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
		log:      logging.For("config").With().Str("file", path).Logger(),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
				timerC = timer.C
			} else {
				timer.Reset(reloadDelay)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watch error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		// Keep running with the previous config; a half-written file will
		// produce another event once the writer finishes.
		w.log.Warn().Err(err).Msg("config reload failed")
		return
	}
	w.log.Info().Msg("config reloaded")
	w.onChange(cfg)
}
