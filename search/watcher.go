package search

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events into one trigger.
const debounceWindow = 500 * time.Millisecond

// Watcher observes a directory tree and reports content changes, coalesced,
// on its Changes channel. It is used to re-run the active query when the
// searched tree mutates.
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	changes chan struct{}
	log     *slog.Logger
}

// NewWatcher starts watching root recursively.
func NewWatcher(root string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		root:    root,
		fsw:     fsw,
		changes: make(chan struct{}, 1),
		log:     log,
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers one signal per settled burst of filesystem activity.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run pumps fsnotify events until ctx is done. Newly created directories are
// added to the watch set; events are debounced before signalling.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if err := w.addTree(ev.Name); err != nil {
					w.log.Debug("watch new path", "path", ev.Name, "err", err)
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "err", err)
		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	return !strings.HasPrefix(base, ".")
}

// addTree registers path and, if it is a directory, every non-hidden
// subdirectory beneath it.
func (w *Watcher) addTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != path && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return fs.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.log.Debug("watch dir", "path", p, "err", err)
		}
		return nil
	})
}
