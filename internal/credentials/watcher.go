package credentials

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"vizard/internal/logging"
)

// fileWatcher watches a single file and invokes onChange after writes
// settle. Edits are debounced so an editor's save dance (write, rename,
// chmod) triggers one reload, not several.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()

	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
}

func newFileWatcher(path string, onChange func()) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: rename-over-replace swaps the
	// inode and a file-level watch would go stale.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	fw := &fileWatcher{
		watcher:     watcher,
		path:        path,
		onChange:    onChange,
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	go fw.run()
	return fw, nil
}

func (fw *fileWatcher) stop() {
	close(fw.stopCh)
	<-fw.doneCh
	if err := fw.watcher.Close(); err != nil {
		logging.Credentials("error closing watcher: %v", err)
	}
}

func (fw *fileWatcher) run() {
	defer close(fw.doneCh)

	var pending *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-fw.stopCh:
			if pending != nil {
				pending.Stop()
			}
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(fw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(fw.debounceDur)
				fire = pending.C
			} else {
				if !pending.Stop() {
					<-fire
				}
				pending.Reset(fw.debounceDur)
			}

		case <-fire:
			pending = nil
			fire = nil
			fw.onChange()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Credentials("watch error: %v", err)
		}
	}
}
