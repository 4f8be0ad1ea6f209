// Package watch reloads the schema while serving: a Watcher reports manifest edits and a
// ReloadServer pushes the outcome to open viewer pages over a websocket.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long a burst of edits is collected before onChange runs
const DefaultDelay = 200 * time.Millisecond

// Watcher reports changes to manifest files. A directory path covers the *.yml and *.yaml
// files directly inside it; a file path is watched through its parent directory so editors
// that save by renaming are still seen.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	files     map[string]bool
	dirs      map[string]bool
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewWatcher creates a watcher over paths. onChange receives the changed files, sorted.
func NewWatcher(paths []string, delay time.Duration, logger *zap.Logger, onChange func([]string)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		debouncer: NewDebouncer(delay, onChange),
		files:     make(map[string]bool),
		dirs:      make(map[string]bool),
		logger:    logger,
		stopChan:  make(chan struct{}),
	}

	for _, p := range paths {
		clean := filepath.Clean(p)
		info, err := os.Stat(clean)
		if err != nil {
			return nil, fmt.Errorf("failed to stat watched path: %w", err)
		}
		if info.IsDir() {
			w.dirs[clean] = true
		} else {
			w.files[clean] = true
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = watcher
	return w, nil
}

// Start begins watching in the background
func (w *Watcher) Start() error {
	for _, dir := range w.directories() {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", zap.String("dir", dir))
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops watching. Pending changes are dropped.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
		w.debouncer.Stop()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.Matches(event.Name) {
				w.logger.Debug("manifest changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
				w.debouncer.Add(filepath.Clean(event.Name))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-w.stopChan:
			return
		}
	}
}

// directories returns the set of directories handed to fsnotify, sorted
func (w *Watcher) directories() []string {
	set := make(map[string]bool)
	for dir := range w.dirs {
		set[dir] = true
	}
	for file := range w.files {
		set[filepath.Dir(file)] = true
	}

	dirs := make([]string, 0, len(set))
	for dir := range set {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Matches reports whether a change to path concerns a watched manifest
func (w *Watcher) Matches(path string) bool {
	path = filepath.Clean(path)
	if w.files[path] {
		return true
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(base)
	return w.dirs[filepath.Dir(path)] && (ext == ".yml" || ext == ".yaml")
}

// Debouncer collects file names and hands them to a callback once no new name has
// arrived for its delay
type Debouncer struct {
	delay    time.Duration
	callback func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	files   map[string]struct{}
	stopped bool
}

// NewDebouncer creates a debouncer
func NewDebouncer(delay time.Duration, callback func([]string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
		files:    make(map[string]struct{}),
	}
}

// Add records a file and restarts the delay
func (d *Debouncer) Add(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// flush runs the callback outside the lock so Add never waits on a reload
func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mu.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(files)
	if d.callback != nil {
		d.callback(files)
	}
}

// Stop cancels a pending flush
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
