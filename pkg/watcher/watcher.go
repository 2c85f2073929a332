// Package watcher re-runs a diff whenever one of the two graph documents
// changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/pdg-diff/pkg/logging"
)

// ChangeType tells which side of the diff changed
type ChangeType int

const (
	ChangeTypeOld ChangeType = iota
	ChangeTypeNew
	ChangeTypeBoth
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeOld:
		return "old"
	case ChangeTypeNew:
		return "new"
	case ChangeTypeBoth:
		return "both"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// merge combines two change types
func (t ChangeType) merge(other ChangeType) ChangeType {
	if t == other {
		return t
	}
	return ChangeTypeBoth
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups the burst of events a single save produces
const batchWindow = 100 * time.Millisecond

// FileWatcher watches the old and new graph documents
type FileWatcher struct {
	watcher *fsnotify.Watcher
	oldPath string
	newPath string
	events  chan ChangeEvent
	stop    chan struct{}
	done    chan struct{}

	stopOnce sync.Once
}

// NewFileWatcher creates a watcher for the two documents
func NewFileWatcher(oldPath, newPath string) (*FileWatcher, error) {
	oldAbs, err := filepath.Abs(oldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", oldPath, err)
	}
	newAbs, err := filepath.Abs(newPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", newPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		oldPath: oldAbs,
		newPath: newAbs,
		events:  make(chan ChangeEvent, 100),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching for file changes. The parent directories are watched
// rather than the files so that editors replacing a file on save are noticed.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := map[string]bool{
		filepath.Dir(fw.oldPath): true,
		filepath.Dir(fw.newPath): true,
	}
	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			fw.watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	logging.Info("started watching documents", "old", fw.oldPath, "new", fw.newPath)

	go fw.processEvents(ctx)
	return nil
}

// classify maps a file system path onto the side it belongs to
func (fw *FileWatcher) classify(name string) (ChangeType, bool) {
	name = filepath.Clean(name)
	switch {
	case name == fw.oldPath && name == fw.newPath:
		return ChangeTypeBoth, true
	case name == fw.oldPath:
		return ChangeTypeOld, true
	case name == fw.newPath:
		return ChangeTypeNew, true
	default:
		return 0, false
	}
}

// processEvents filters file system events down to the two documents and
// batches them
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.done)
	defer close(fw.events)

	var (
		pending  []string
		kind     ChangeType
		hasBatch bool
	)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	// flush hands the batch on; false means nobody will read it any more
	flush := func() bool {
		if !hasBatch {
			return true
		}
		select {
		case fw.events <- ChangeEvent{Type: kind, Paths: pending, Timestamp: time.Now()}:
		case <-fw.stop:
			return false
		case <-ctx.Done():
			return false
		}
		pending, hasBatch = nil, false
		return true
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			return

		case <-fw.stop:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			t, ok := fw.classify(event.Name)
			if !ok {
				continue
			}
			logging.Trace("document event", "path", event.Name, "op", event.Op.String())

			if hasBatch {
				kind = kind.merge(t)
			} else {
				kind, hasBatch = t, true
			}
			pending = appendUnique(pending, event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			if !flush() {
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when watching stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher and waits for event processing to end. A batch
// still waiting for a reader is dropped.
func (fw *FileWatcher) Stop() error {
	fw.stopOnce.Do(func() { close(fw.stop) })
	err := fw.watcher.Close()
	<-fw.done
	return err
}

func appendUnique(paths []string, path string) []string {
	for _, p := range paths {
		if p == path {
			return paths
		}
	}
	return append(paths, path)
}
