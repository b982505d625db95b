// Package watcher reports files appearing in and disappearing from a single
// directory.
package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeSet is one diff between two directory snapshots. Both slices are
// ordered newest first by creation date.
type ChangeSet struct {
	NewFiles     []string
	DeletedFiles []string
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.NewFiles) == 0 && len(c.DeletedFiles) == 0
}

// Delegate receives watcher notifications. Calls arrive on the watcher's own
// goroutine, one at a time. A delegate must not call Stop synchronously.
type Delegate interface {
	DirectoryChanged(w *Watcher, changes ChangeSet)
	DirectoryError(w *Watcher, err error)
}

// snapshot maps an entry path to its creation time.
type snapshot map[string]time.Time

// Watcher observes one directory.
type Watcher struct {
	dir      string
	delegate Delegate
	list     func(dir string) (snapshot, error)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	last    snapshot
	done    chan struct{}
	running bool
}

// New creates a stopped watcher for dir.
func New(dir string, delegate Delegate) *Watcher {
	return &Watcher{dir: dir, delegate: delegate, list: listDirectory}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// IsRunning reports whether Start succeeded and Stop has not been called.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start takes the initial snapshot and opens the watch. It returns false when
// already running or when the directory cannot be watched.
func (w *Watcher) Start() bool {
	var listErr error
	defer func() {
		if listErr != nil {
			w.report(listErr)
		}
	}()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return false
	}

	initial, err := w.list(w.dir)
	if err != nil {
		listErr = err
		initial = snapshot{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Watcher: failed to create watcher: %v", err)
		return false
	}
	if err := fsw.Add(w.dir); err != nil {
		log.Printf("Watcher: failed to watch %s: %v", w.dir, err)
		fsw.Close()
		return false
	}

	w.fsw = fsw
	w.last = initial
	w.done = make(chan struct{})
	w.running = true

	go w.loop(fsw, w.done)
	log.Printf("Watcher: watching %s (%d entries)", w.dir, len(initial))
	return true
}

// Stop cancels the watch and releases its descriptor. Safe when not running.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	fsw, done := w.fsw, w.done
	w.fsw = nil
	w.running = false
	w.mu.Unlock()

	if err := fsw.Close(); err != nil {
		log.Printf("Watcher: close failed for %s: %v", w.dir, err)
	}
	<-done
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.refresh()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.report(fmt.Errorf("watch %s: %w", w.dir, err))
		}
	}
}

// refresh re-lists the directory and emits the diff against the previous
// snapshot, empty or not. The delegate sees the change before the snapshot
// is replaced.
func (w *Watcher) refresh() {
	current, err := w.list(w.dir)
	if err != nil {
		w.report(err)
		return
	}

	w.mu.Lock()
	previous := w.last
	w.mu.Unlock()

	changes := diff(previous, current)
	if w.delegate != nil {
		w.delegate.DirectoryChanged(w, changes)
	}

	w.mu.Lock()
	w.last = current
	w.mu.Unlock()
}

func (w *Watcher) report(err error) {
	if w.delegate != nil {
		w.delegate.DirectoryError(w, err)
		return
	}
	log.Printf("Watcher: %v", err)
}

func diff(previous, current snapshot) ChangeSet {
	return ChangeSet{
		NewFiles:     subtract(current, previous),
		DeletedFiles: subtract(previous, current),
	}
}

// subtract returns the entries of left missing from right, newest first.
func subtract(left, right snapshot) []string {
	var out []string
	for path := range left {
		if _, ok := right[path]; !ok {
			out = append(out, path)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := left[out[i]], left[out[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i] < out[j]
	})
	return out
}

func listDirectory(dir string) (snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	snap := make(snapshot, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			continue
		}
		snap[path] = creationTime(path, info)
	}
	return snap, nil
}
