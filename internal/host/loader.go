package host

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evanreyes/drawcast/internal/logger"
)

// reloadDebounce matches the original engine's hot-reload coalescing
// window: a burst of editor saves collapses into a single reload.
const reloadDebounce = 50 * time.Millisecond

// Loader watches a Lua script file and produces a fresh LuaHost whenever it
// changes on disk. A failed reload keeps the previously loaded host running.
type Loader struct {
	scriptPath string
	watcher    *fsnotify.Watcher
	Reloaded   chan *LuaHost
}

// NewLoader loads scriptPath once and starts watching it for changes.
func NewLoader(scriptPath string) (*Loader, *LuaHost, error) {
	h, err := NewLuaHost(scriptPath)
	if err != nil {
		return nil, nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		h.Close()
		return nil, nil, err
	}
	if err := w.Add(scriptPath); err != nil {
		w.Close()
		h.Close()
		return nil, nil, err
	}

	l := &Loader{scriptPath: scriptPath, watcher: w, Reloaded: make(chan *LuaHost, 1)}
	go l.watch()
	return l, h, nil
}

// watch drains write events, debounces them, and emits a freshly loaded
// LuaHost on l.Reloaded whenever the script reloads successfully.
func (l *Loader) watch() {
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			l.drainPending()
			time.Sleep(reloadDebounce)

			next, err := NewLuaHost(l.scriptPath)
			if err != nil {
				logger.Warn("hot reload failed, keeping prior host", "path", l.scriptPath, "error", err)
				continue
			}
			l.Reloaded <- next

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("script watcher error", "error", err)
		}
	}
}

// drainPending consumes any events already queued so a burst of saves
// collapses into the single reload triggered after reloadDebounce.
func (l *Loader) drainPending() {
	for {
		select {
		case <-l.watcher.Events:
		default:
			return
		}
	}
}

// Close stops watching the script file.
func (l *Loader) Close() error {
	return l.watcher.Close()
}
