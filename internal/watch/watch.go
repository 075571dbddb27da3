// Package watch flags instruments whose target file changed outside the
// tool. Location strings recorded at insertion time go stale when a file is
// edited elsewhere; that is accepted, but the session surfaces it so the
// caller knows which instruments to distrust.
package watch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// selfWriteWindow is how long after one of our own mutations events on the
// same file are ignored. File mutations are interactive and far apart, so a
// coarse window is enough to tell our writes from external edits.
const selfWriteWindow = 2 * time.Second

// Watcher observes instrumented files and reports external modifications.
type Watcher struct {
	logger     *zap.Logger
	onExternal func(path string)
	fsw        *fsnotify.Watcher

	mu         sync.Mutex
	selfWrites map[string]time.Time
	closed     bool
}

// New starts a watcher. onExternal is invoked with the absolute path of any
// watched file that was written by something other than the tool itself.
func New(logger *zap.Logger, onExternal func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		logger:     logger,
		onExternal: onExternal,
		fsw:        fsw,
		selfWrites: make(map[string]time.Time),
	}
	go w.loop()
	return w, nil
}

// Add starts watching a file. Watching the same path twice is harmless.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// NoteSelfWrite records that the tool itself is about to modify path, so the
// resulting event is not treated as an external edit.
func (w *Watcher) NoteSelfWrite(path string) {
	w.mu.Lock()
	w.selfWrites[path] = time.Now()
	w.mu.Unlock()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if w.isSelfWrite(ev.Name) {
				continue
			}
			w.logger.Debug("external edit detected", zap.String("file", ev.Name))
			w.onExternal(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) isSelfWrite(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ts, ok := w.selfWrites[path]
	if !ok {
		return false
	}
	if time.Since(ts) > selfWriteWindow {
		delete(w.selfWrites, path)
		return false
	}
	return true
}
