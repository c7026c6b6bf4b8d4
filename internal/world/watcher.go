package world

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"codescout/internal/logging"
)

const debounceWindow = 500 * time.Millisecond

// Watcher flags the index as stale when workspace files change. It never
// triggers reindexing itself; rebuilds stay an explicit user action.
type Watcher struct {
	fsw      *fsnotify.Watcher
	ws       *Workspace
	onChange func()
	cancel   context.CancelFunc
}

// NewWatcher watches every directory under the workspace root. onChange
// fires at most once per debounce window.
func NewWatcher(ws *Workspace, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, ws: ws, onChange: onChange}
	err = filepath.Walk(ws.Root(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if path != ws.Root() {
			if skippedDirs[name] {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") && !allowedHidden[name] {
				return filepath.SkipDir
			}
		}
		return fsw.Add(path)
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start runs the event loop until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	logging.World("watching %s for changes", w.ws.Root())
}

// Stop ends the event loop and closes the underlying watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	var pending bool
	var last time.Time
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if strings.HasPrefix(base, ".") || skippedDirs[base] {
				continue
			}
			logging.WorldDebug("change detected: %s (%s)", event.Name, event.Op)
			pending = true
			last = time.Now()
			// New directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(event.Name)
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWorld).Warnf("watch error: %v", err)
		case <-tick.C:
			if pending && time.Since(last) >= debounceWindow {
				pending = false
				w.onChange()
			}
		}
	}
}
