package state

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reports writes to the file backing ref. The parent directory is
// watched because saves replace the file through a rename. onChange runs
// once per burst of events, after the debounce interval.
func (s *FileStore) Watch(ctx context.Context, ref Ref, onChange func()) (io.Closer, error) {
	if onChange == nil {
		return nil, fmt.Errorf("state: watch callback is required")
	}
	path, err := s.Location(ref)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("state: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("state: watch %s: %w", filepath.Dir(path), err)
	}

	w := &fileWatch{
		watcher:  watcher,
		path:     filepath.Clean(path),
		debounce: s.debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	s.logger.Debug().
		Str("event", "state.watcher_started").
		Str("path", path).
		Msg("watching settings file for changes")

	go w.loop(ctx, s)
	return w, nil
}

type fileWatch struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func()

	closeOnce sync.Once
	done      chan struct{}
	mu        sync.Mutex
	timer     *time.Timer
}

func (w *fileWatch) loop(ctx context.Context, s *FileStore) {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				s.logger.Debug().
					Str("event", "state.file_changed").
					Str("op", event.Op.String()).
					Msg("settings file changed")
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().
				Err(err).
				Str("event", "state.watcher_error").
				Msg("settings watcher error")
		}
	}
}

func (w *fileWatch) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.onChange()
	})
}

func (w *fileWatch) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *fileWatch) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
