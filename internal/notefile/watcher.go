// Package notefile keeps notes widgets in sync with markdown files on disk.
package notefile

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler receives the trimmed file content after a linked file changed.
type ChangeHandler func(widgetID, content string)

// Watcher maps watched files to widget IDs and reports edits made outside
// the app, e.g. from a text editor.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	debounce time.Duration

	mu       sync.RWMutex
	watching map[string]string // abs path -> widget ID
	dirs     map[string]int    // abs dir -> number of watched files in it
	timers   map[string]*time.Timer
	done     chan struct{}
}

// New starts a watcher. Rapid successive writes to one file are collapsed
// into a single callback after debounce.
func New(onChange ChangeHandler, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		debounce: debounce,
		watching: make(map[string]string),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch links filePath to widgetID. A widget watches at most one file.
func (w *Watcher) Watch(widgetID, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	w.Unwatch(widgetID)

	w.mu.Lock()
	defer w.mu.Unlock()

	// fsnotify watches directories; editors often replace the file on save
	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.watching[absPath] = widgetID
	return nil
}

// Unwatch drops the file linked to widgetID, if any.
func (w *Watcher) Unwatch(widgetID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, id := range w.watching {
		if id != widgetID {
			continue
		}
		delete(w.watching, path)
		dir := filepath.Dir(path)
		w.dirs[dir]--
		if w.dirs[dir] <= 0 {
			delete(w.dirs, dir)
			_ = w.watcher.Remove(dir)
		}
		if t, ok := w.timers[path]; ok {
			t.Stop()
			delete(w.timers, path)
		}
		return
	}
}

// Retain unwatches every widget not in keep.
func (w *Watcher) Retain(keep map[string]bool) {
	w.mu.RLock()
	var drop []string
	for _, id := range w.watching {
		if !keep[id] {
			drop = append(drop, id)
		}
	}
	w.mu.RUnlock()
	for _, id := range drop {
		w.Unwatch(id)
	}
}

// Watched returns the number of linked files.
func (w *Watcher) Watched() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.watching)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			w.schedule(absPath)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notefile: watcher error: %v", err)
		}
	}
}

func (w *Watcher) schedule(absPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, watched := w.watching[absPath]; !watched {
		return
	}
	if t, ok := w.timers[absPath]; ok {
		t.Stop()
	}
	w.timers[absPath] = time.AfterFunc(w.debounce, func() { w.fire(absPath) })
}

func (w *Watcher) fire(absPath string) {
	w.mu.Lock()
	widgetID, watched := w.watching[absPath]
	delete(w.timers, absPath)
	w.mu.Unlock()
	if !watched {
		return
	}

	content, err := Read(absPath)
	if err != nil {
		log.Printf("notefile: read %s: %v", absPath, err)
		return
	}
	if w.onChange != nil {
		w.onChange(widgetID, content)
	}
}

// Read returns the trimmed content of a notes file.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Ensure returns the default file for widgetID under dir, creating it with
// content when it does not exist yet.
func Ensure(dir, widgetID, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create notes dir: %w", err)
	}
	path := filepath.Join(dir, widgetID+".md")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write notes file: %w", err)
	}
	return path, nil
}
