package prompts

import (
	"fmt"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads prompt overrides while the server runs, so prompt
// tuning does not require a restart.
type Watcher struct {
	store   *Store
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch loads the overrides in dir and starts watching it for changes.
// The returned Watcher must be closed when the server shuts down.
func (s *Store) Watch(dir string) (*Watcher, error) {
	if err := s.LoadOverrides(dir); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		store:   s,
		dir:     dir,
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.run()

	return w, nil
}

// run reloads the full override set on every relevant filesystem event.
// Reloading everything keeps the logic independent of event coalescing
// quirks across platforms.
func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".txt") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.store.LoadOverrides(w.dir); err != nil {
				log.Printf("[prompts] reload overrides: %v", err)
				continue
			}
			log.Printf("[prompts] reloaded overrides from %s", w.dir)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[prompts] watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
