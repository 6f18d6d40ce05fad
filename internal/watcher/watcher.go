// Package watcher signals when Python sources under a project root
// change. Serve mode uses it to know that the next analysis request
// must re-index; it never triggers analysis by itself.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

const debounceWindow = 250 * time.Millisecond

// Watcher watches a project tree and emits one debounced signal per
// burst of .py changes.
type Watcher struct {
	root    string
	matcher *ignore.GitIgnore
	fsw     *fsnotify.Watcher

	mu     sync.Mutex
	closed bool
}

// New creates a Watcher over root. A .gitignore at the root filters
// both watched directories and events.
func New(root string) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &Watcher{root: absRoot}
	if matcher, err := ignore.CompileIgnoreFile(filepath.Join(absRoot, ".gitignore")); err == nil {
		w.matcher = matcher
	}
	return w, nil
}

// Start begins watching and returns a channel that receives a signal
// after each debounced burst of changes. The channel closes when ctx
// is canceled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan struct{}, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		fsw.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts the watcher down.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if base == ".git" || base == "__pycache__" {
			return filepath.SkipDir
		}
		if w.ignored(path, true) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignored(path string, dir bool) bool {
	if w.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}
	return w.matcher.MatchesPath(rel)
}

// relevant keeps .py/.pyi events plus directory creation, which needs
// a new watch.
func relevant(name string) bool {
	return strings.HasSuffix(name, ".py") || strings.HasSuffix(name, ".pyi")
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name, false) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
					continue
				}
			}
			if !relevant(event.Name) {
				continue
			}
			// Coalesce the burst into one signal.
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case out <- struct{}{}:
			default: // receiver hasn't consumed the last signal
			}

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
		}
	}
}
