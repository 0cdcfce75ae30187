package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/time/rate"

	"github.com/alucardeht/coffeeidx/internal/config"
	"github.com/alucardeht/coffeeidx/internal/parser"
)

var ErrTooLarge = errors.New("file too large")

type WorkerConfig struct {
	WorkerCount     int
	MaxQueueSize    int
	RateLimit       int
	MaxFileSize     int64
	Extensions      []string
	ExcludePatterns []string
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfigFrom(config.Default().Index)
}

func WorkerConfigFrom(c config.IndexConfig) WorkerConfig {
	return WorkerConfig{
		WorkerCount:     c.WorkerCount,
		MaxQueueSize:    c.MaxQueueSize,
		RateLimit:       c.RateLimit,
		MaxFileSize:     c.MaxFileSize,
		Extensions:      c.Extensions,
		ExcludePatterns: c.ExcludePatterns,
	}
}

// SourceReader loads the text of a file handle.
type SourceReader interface {
	ReadSource(file string) (string, error)
}

// FileReader reads project-relative files under Root, decoding them to UTF-8.
type FileReader struct {
	Root    string
	MaxSize int64
}

func (r FileReader) ReadSource(file string) (string, error) {
	p := file
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.Root, filepath.FromSlash(file))
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: is a directory", file)
	}
	if r.MaxSize > 0 && info.Size() > r.MaxSize {
		return "", fmt.Errorf("%s: %w (%d bytes)", file, ErrTooLarge, info.Size())
	}
	content, _, err := ReadFileAsUTF8(p)
	return content, err
}

type WorkerStats struct {
	Indexed     int64     `json:"indexed"`
	Unchanged   int64     `json:"unchanged"`
	Removed     int64     `json:"removed"`
	Failed      int64     `json:"failed"`
	Skipped     int64     `json:"skipped"`
	InQueue     int64     `json:"in_queue"`
	IsRunning   bool      `json:"is_running"`
	StartedAt   time.Time `json:"started_at"`
	LastIndexed time.Time `json:"last_indexed"`
}

// IndexWorker drains prioritized index jobs into a Store.
type IndexWorker struct {
	store  *Store
	reader SourceReader
	config WorkerConfig

	highQueue   chan IndexJob
	normalQueue chan IndexJob
	lowQueue    chan IndexJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	limiter *rate.Limiter

	indexed, unchanged, removed, failed, skipped atomic.Int64
	inQueue, active                              atomic.Int64

	statsMu     sync.RWMutex
	running     bool
	startedAt   time.Time
	lastIndexed time.Time
}

func NewIndexWorker(store *Store, reader SourceReader, config WorkerConfig) *IndexWorker {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())

	w := &IndexWorker{
		store:       store,
		reader:      reader,
		config:      config,
		highQueue:   make(chan IndexJob, 100),
		normalQueue: make(chan IndexJob, config.MaxQueueSize),
		lowQueue:    make(chan IndexJob, config.MaxQueueSize*2),
		ctx:         ctx,
		cancel:      cancel,
	}

	if config.RateLimit > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
	}

	return w
}

func (w *IndexWorker) Start() {
	w.statsMu.Lock()
	w.running = true
	w.startedAt = time.Now()
	w.statsMu.Unlock()

	log.Info("index worker started", "workers", w.config.WorkerCount)

	for i := 0; i < w.config.WorkerCount; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
}

// Stop halts the workers, then processes whatever is still queued for up to
// drainTimeout so late watcher events are not lost. Jobs left after that are
// dropped and counted in the log.
func (w *IndexWorker) Stop() {
	log.Info("index worker stopping")

	w.cancel()
	w.wg.Wait()
	w.drain(drainTimeout)

	w.statsMu.Lock()
	w.running = false
	w.statsMu.Unlock()

	log.Info("index worker stopped")
}

const drainTimeout = 5 * time.Second

func (w *IndexWorker) drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	processed, dropped := 0, 0
	for _, queue := range []chan IndexJob{w.highQueue, w.normalQueue, w.lowQueue} {
	next:
		for {
			select {
			case job := <-queue:
				w.inQueue.Add(-1)
				if time.Now().After(deadline) {
					dropped++
					continue
				}
				_ = w.Process(context.Background(), job)
				processed++
			default:
				break next
			}
		}
	}
	if processed > 0 || dropped > 0 {
		log.Info("drained index queue", "processed", processed, "dropped", dropped)
	}
}

func (w *IndexWorker) Enqueue(job IndexJob) bool {
	var queue chan IndexJob
	switch job.Priority {
	case PriorityHigh:
		queue = w.highQueue
	case PriorityLow:
		queue = w.lowQueue
	default:
		queue = w.normalQueue
	}

	w.inQueue.Add(1)
	select {
	case queue <- job:
		return true
	default:
		w.inQueue.Add(-1)
		log.Warn("job enqueue failed - queue full", "path", job.Path, "priority", job.Priority)
		return false
	}
}

func (w *IndexWorker) EnqueueBatch(paths []string, priority JobPriority) int {
	count := 0
	for _, p := range paths {
		if w.Enqueue(IndexJob{Path: p, Kind: JobUpdate, Priority: priority}) {
			count++
		}
	}
	return count
}

// Idle reports that no job is queued or being processed.
func (w *IndexWorker) Idle() bool {
	return w.inQueue.Load() == 0 && w.active.Load() == 0
}

func (w *IndexWorker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return WorkerStats{
		Indexed:     w.indexed.Load(),
		Unchanged:   w.unchanged.Load(),
		Removed:     w.removed.Load(),
		Failed:      w.failed.Load(),
		Skipped:     w.skipped.Load(),
		InQueue:     w.inQueue.Load(),
		IsRunning:   w.running,
		StartedAt:   w.startedAt,
		LastIndexed: w.lastIndexed,
	}
}

func (w *IndexWorker) worker(id int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		if w.limiter != nil {
			if err := w.limiter.Wait(w.ctx); err != nil {
				return
			}
		}

		var job IndexJob
		select {
		case job = <-w.highQueue:
		default:
			select {
			case job = <-w.highQueue:
			case job = <-w.normalQueue:
			default:
				select {
				case job = <-w.highQueue:
				case job = <-w.normalQueue:
				case job = <-w.lowQueue:
				case <-w.ctx.Done():
					return
				}
			}
		}

		w.active.Add(1)
		w.inQueue.Add(-1)
		log.Debug("worker processing job", "worker_id", id, "path", job.Path, "kind", job.Kind)
		// A started update always completes so the file is never left half written.
		_ = w.Process(context.WithoutCancel(w.ctx), job)
		w.active.Add(-1)
	}
}

// Process runs one job synchronously.
func (w *IndexWorker) Process(ctx context.Context, job IndexJob) error {
	if job.Kind == JobRemove {
		if err := w.store.Remove(ctx, job.Path); err != nil {
			w.failed.Add(1)
			log.Warn("failed to remove", "path", job.Path, "error", err)
			return err
		}
		w.removed.Add(1)
		log.Debug("file removed", "path", job.Path)
		return nil
	}

	if reason := w.skipReason(job.Path); reason != "" {
		w.skipped.Add(1)
		log.Debug("skipped file", "path", job.Path, "reason", reason)
		return nil
	}

	var content string
	if job.Source != nil {
		content = *job.Source
	} else {
		src, err := w.reader.ReadSource(job.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return w.Process(ctx, IndexJob{Path: job.Path, Kind: JobRemove})
		case errors.Is(err, ErrTooLarge):
			w.skipped.Add(1)
			_ = w.store.SetStatus(ctx, job.Path, StatusSkipped, err.Error())
			log.Debug("skipped file", "path", job.Path, "reason", "file too large")
			return nil
		case err != nil:
			w.recordFailed(ctx, job.Path, err)
			return err
		}
		content = src
	}

	_, err := w.IndexSource(ctx, job.Path, content)
	return err
}

// IndexSource extracts definitions from content and replaces the file's
// entries. It reports whether anything was written.
func (w *IndexWorker) IndexSource(ctx context.Context, file, content string) (bool, error) {
	hash := ContentHash(content)
	if current, ok := w.store.FileHash(ctx, file); ok && current == hash {
		w.unchanged.Add(1)
		log.Debug("skipped file", "path", file, "reason", "content unchanged")
		return false, nil
	}

	outline := parser.ExtractSource(file, content)
	entries := Flatten(outline)

	changed, err := w.store.Replace(ctx, file, hash, entries)
	if err != nil {
		w.recordFailed(ctx, file, err)
		return false, err
	}
	if !changed {
		w.unchanged.Add(1)
		return false, nil
	}

	n := w.indexed.Add(1)
	w.statsMu.Lock()
	w.lastIndexed = time.Now()
	w.statsMu.Unlock()
	log.Debug("file indexed", "path", file, "definitions", outline.Len(), "entries", len(entries))

	if n%100 == 0 {
		log.Info("indexing progress", "indexed", n, "pending", w.inQueue.Load())
	}
	return true, nil
}

func (w *IndexWorker) skipReason(file string) string {
	if !HasExtension(file, w.config.Extensions) {
		return "extension"
	}
	if Excluded(file, w.config.ExcludePatterns) {
		return "excluded by pattern"
	}
	return ""
}

func (w *IndexWorker) recordFailed(ctx context.Context, file string, err error) {
	w.failed.Add(1)
	log.Warn("failed to index", "path", file, "error", err)
	if serr := w.store.SetStatus(ctx, file, StatusFailed, err.Error()); serr != nil {
		log.Warn("failed to record status", "path", file, "error", serr)
	}
}

func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HasExtension reports whether file ends in one of exts. No extensions means
// every file matches.
func HasExtension(file string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(file))
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Excluded matches a slash path against doublestar patterns.
func Excluded(file string, patterns []string) bool {
	file = filepath.ToSlash(file)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, file); ok {
			return true
		}
	}
	return false
}
