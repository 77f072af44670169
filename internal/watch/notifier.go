// Package watch reports changes to one file as opaque signals.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultSettle groups the writes of one save into a single signal.
const DefaultSettle = 200 * time.Millisecond

// FileNotifier watches the directory holding path and signals when path
// was written or replaced.
type FileNotifier struct {
	path    string
	settle  time.Duration
	watcher *fsnotify.Watcher
	log     zerolog.Logger
}

func NewFileNotifier(path string, settle time.Duration, logger zerolog.Logger) (*FileNotifier, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}
	return &FileNotifier{
		path:    abs,
		settle:  settle,
		watcher: w,
		log:     logger.With().Str("component", "watch").Str("file", abs).Logger(),
	}, nil
}

// Run forwards one signal per settled change to out until ctx ends or the
// watcher is closed.
func (n *FileNotifier) Run(ctx context.Context, out chan<- struct{}) error {
	var (
		timer   *time.Timer
		settled <-chan time.Time
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
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return nil
			}
			if !n.matches(ev) {
				continue
			}
			n.log.Debug().Stringer("op", ev.Op).Msg("route file changed")
			if timer == nil {
				timer = time.NewTimer(n.settle)
			} else {
				timer.Reset(n.settle)
			}
			settled = timer.C
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return nil
			}
			n.log.Warn().Err(err).Msg("watch error")
		case <-settled:
			settled = nil
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (n *FileNotifier) matches(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != n.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func (n *FileNotifier) Close() error {
	return n.watcher.Close()
}
