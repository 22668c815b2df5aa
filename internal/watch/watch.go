// Package watch re-runs a callback when files in a directory change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
)

// DefaultDebounce is how long events are coalesced before the callback runs.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a directory for changes to matching files.
type Watcher struct {
	dir      string
	match    func(name string) bool
	callback func() error
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher on dir. match filters file names; nil
// matches everything.
func NewWatcher(dir string, match func(name string) bool, callback func() error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := watcher.Add(absDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	if match == nil {
		match = func(string) bool { return true }
	}
	return &Watcher{
		dir:      absDir,
		match:    match,
		callback: callback,
		debounce: DefaultDebounce,
		watcher:  watcher,
	}, nil
}

// SetDebounce changes the debounce window.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run calls the callback once, then again after every burst of changes,
// until ctx is done. Callback errors are reported through onError and do
// not stop the watcher.
func (w *Watcher) Run(ctx context.Context, onError func(error)) error {
	defer w.watcher.Close()

	if err := w.callback(); err != nil {
		onError(err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			debug.Debug("watch event", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.callback(); err != nil {
				onError(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			onError(fmt.Errorf("watch error: %w", err))

		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.match(filepath.Base(event.Name))
}
