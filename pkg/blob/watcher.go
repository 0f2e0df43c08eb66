package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/musterhq/muster/pkg/events"
	"github.com/musterhq/muster/pkg/log"
)

// Watcher turns filesystem writes under an FSStore bucket into
// blob.created events on the broker, standing in for bucket
// notifications when the fs backend is active. Only finalized objects
// are announced; the store's write-then-rename discipline means a
// rename into place is the create signal.
type Watcher struct {
	store   *FSStore
	bucket  string
	broker  *events.Broker
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewWatcher watches bucket inside store.
func NewWatcher(store *FSStore, bucket string, broker *events.Broker) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		store:   store,
		bucket:  bucket,
		broker:  broker,
		watcher: fw,
		stopCh:  make(chan struct{}),
	}

	root := filepath.Join(store.Root(), bucket)
	if err := os.MkdirAll(root, 0750); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins event translation.
func (w *Watcher) Start() {
	go w.run()
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *Watcher) run() {
	logger := log.WithComponent("blob-watcher")
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			switch {
			case ev.Op.Has(fsnotify.Create) && w.isDir(ev.Name):
				// New owner directory: watch it so its files are seen.
				if err := w.addRecursive(ev.Name); err != nil {
					logger.Warn().Err(err).Str("dir", ev.Name).Msg("failed to watch new directory")
				}
				// Objects finalized before the watch landed get no
				// Create event of their own; announce them now.
				// Ingress start is idempotent, so a duplicate
				// announcement is harmless.
				w.announceExisting(ev.Name)
			case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename):
				w.announce(ev.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("watch error")
		case <-w.stopCh:
			return
		}
	}
}

// announce publishes a blob.created event for a finalized object.
func (w *Watcher) announce(path string) {
	if strings.HasSuffix(path, ".tmp") || w.isDir(path) {
		return
	}
	key, err := w.keyFor(path)
	if err != nil {
		return
	}
	w.broker.Publish(&events.Event{
		Type:   events.EventBlobCreated,
		Bucket: w.bucket,
		Key:    key,
	})
}

func (w *Watcher) keyFor(path string) (string, error) {
	root := filepath.Join(w.store.Root(), w.bucket)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (w *Watcher) isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func (w *Watcher) announceExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			w.announce(path)
		}
		return nil
	})
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
