// Package watcher keeps the index in step with the project tree by turning
// file system notifications into index jobs.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/coffeeidx/internal/config"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/logger"
)

var log = logger.ForComponent("watcher")

// Sink receives the jobs produced by the watcher. *index.IndexWorker is one.
type Sink interface {
	Enqueue(job index.IndexJob) bool
}

type Watcher struct {
	root        string
	config      config.WatcherConfig
	extensions  []string
	fsWatcher   *fsnotify.Watcher
	fsWatcherMu sync.Mutex
	debouncer   *Debouncer
	sink        Sink
	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// New watches root recursively once started. Only files with one of
// extensions produce jobs.
func New(root string, cfg config.WatcherConfig, extensions []string, sink Sink) (*Watcher, error) {
	if sink == nil {
		return nil, errors.New("watcher: nil sink")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:       abs,
		config:     cfg,
		extensions: extensions,
		fsWatcher:  fsWatcher,
		sink:       sink,
	}
	w.debouncer = NewDebouncer(cfg.DebounceWindow, cfg.MaxBatchSize, w.onFlush)
	return w, nil
}

func (w *Watcher) addToWatcher(path string) error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Add(path)
}

// walkAndAdd watches dir and every directory below it. When announce is set,
// the files found are reported as created: they may have been written before
// the directory was being watched.
func (w *Watcher) walkAndAdd(dir string, announce bool) error {
	if err := w.addToWatcher(dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("failed to read directory", "path", dir, "error", err)
		return err
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		rel, ok := w.relative(full)
		if !ok || w.shouldIgnore(rel, entry.IsDir()) {
			continue
		}

		if entry.IsDir() {
			if err := w.walkAndAdd(full, announce); err != nil {
				log.Debug("failed to watch directory", "path", full, "error", err)
			}
			continue
		}
		if announce && entry.Type().IsRegular() && index.HasExtension(rel, w.extensions) {
			w.debouncer.Add(FileEvent{Path: rel, Type: EventCreate, Timestamp: time.Now()})
		}
	}
	return nil
}

// Start registers the tree and begins delivering events. It does not index
// files already present; that is a full reindex.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	log.Info("starting file watcher", "root", w.root)
	if err := w.walkAndAdd(w.root, false); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true

	go w.handleEvents(ctx)
	return nil
}

func (w *Watcher) handleEvents(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			log.Debug("file event", "path", event.Name, "op", event.Op.String())
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, ok := w.relative(event.Name)
	if !ok {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.shouldIgnore(rel, true) {
				if err := w.walkAndAdd(event.Name, true); err != nil {
					log.Debug("failed to watch new directory", "path", rel, "error", err)
				}
			}
			return
		}
	}

	if fileEvent := w.convertEvent(rel, event); fileEvent != nil {
		w.debouncer.Add(*fileEvent)
	}
}

func (w *Watcher) convertEvent(rel string, event fsnotify.Event) *FileEvent {
	if w.shouldIgnore(rel, false) || !index.HasExtension(rel, w.extensions) {
		return nil
	}

	var eventType EventType

	switch {
	case event.Has(fsnotify.Remove):
		eventType = EventDelete
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventModify
	default:
		return nil
	}

	return &FileEvent{
		Path:      rel,
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

func (w *Watcher) onFlush(events []FileEvent) {
	priority := PriorityFor(events)
	log.Debug("flushing events", "count", len(events), "priority", priority)

	for _, event := range events {
		if !w.sink.Enqueue(event.Job(priority)) {
			log.Warn("index queue full, dropping change", "path", event.Path, "event", event.Type)
		}
	}
}

// relative maps an absolute event path to a project-relative slash path.
func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (w *Watcher) shouldIgnore(rel string, isDir bool) bool {
	if !w.config.WatchHidden {
		for _, part := range strings.Split(rel, "/") {
			if strings.HasPrefix(part, ".") {
				return true
			}
		}
	}

	if isDir {
		rel += "/_"
	}
	return index.Excluded(rel, w.config.IgnorePatterns)
}

// Stop flushes pending changes to the sink and releases the watches.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.closeWatcher()
	}
	log.Info("stopping file watcher")
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.debouncer.Stop()
	return w.closeWatcher()
}

func (w *Watcher) closeWatcher() error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Close()
}
