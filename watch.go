package mdshow

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const (
	// editors often fire several write events per save; anything inside
	// this window collapses into a single re-parse
	watchDebounce = 300 * time.Millisecond
	// give the writing process a moment to finish before reading, to
	// avoid picking up a partially written file
	watchSettle = 100 * time.Millisecond
)

// FileWatcher re-parses a watched markdown file whenever it changes on disk
// and pushes the result to every viewer of its room. It feeds the same
// ReplaceContent entry point as the interactive editor, so there is a single
// serialized writer path per document.
type FileWatcher struct {
	path    string
	fileID  string
	store   *DocumentStore
	hub     *Hub
	watcher *fsnotify.Watcher
	log     *logrus.Logger

	lastEvent time.Time
}

func NewFileWatcher(path, fileID string, store *DocumentStore, hub *Hub, log *logrus.Logger) (*FileWatcher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: many editors replace the file on
	// save, which silently drops a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileWatcher{
		path:    abs,
		fileID:  fileID,
		store:   store,
		hub:     hub,
		watcher: watcher,
		log:     log,
	}, nil
}

// Run blocks until ctx is cancelled.
func (f *FileWatcher) Run(ctx context.Context) {
	defer f.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if evt.Name != f.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			now := time.Now()
			if now.Sub(f.lastEvent) < watchDebounce {
				f.log.WithField("path", f.path).Debug("change debounced")
				continue
			}
			f.lastEvent = now

			f.reload()

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.WithError(err).Warn("watch error")
		}
	}
}

func (f *FileWatcher) reload() {
	time.Sleep(watchSettle)

	content, err := os.ReadFile(f.path)
	if err != nil {
		f.log.WithError(err).WithField("path", f.path).Warn("reading watched file failed")
		return
	}

	slides, err := f.store.ReplaceContent(f.fileID, string(content))
	if err != nil {
		f.log.WithField("file_id", f.fileID).Warn("watched document missing from store")
		return
	}

	f.hub.NotifyContentUpdated(f.fileID, string(content), slides)
	f.log.WithFields(logrus.Fields{
		"file":   filepath.Base(f.path),
		"slides": len(slides),
	}).Info("file updated")
}
