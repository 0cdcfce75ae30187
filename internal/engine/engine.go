// Package engine assembles the index for one project root: store, worker,
// watcher, query index and RPC server.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/alucardeht/coffeeidx/internal/config"
	"github.com/alucardeht/coffeeidx/internal/daemon"
	"github.com/alucardeht/coffeeidx/internal/discover"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/logger"
	"github.com/alucardeht/coffeeidx/internal/query"
	"github.com/alucardeht/coffeeidx/internal/rpc"
	"github.com/alucardeht/coffeeidx/internal/watcher"
)

var log = logger.ForComponent("engine")

// ErrUnavailable is returned by writes when the store could not be opened.
// Queries keep answering, with empty results.
var ErrUnavailable = errors.New("index store unavailable")

const resolverCapacity = 10_000

type Engine struct {
	cfg      *config.Config
	root     string
	store    *index.Store
	resolver *index.CachedResolver
	worker   *index.IndexWorker
	index    *query.Index
}

// Open prepares the index of the project at root. A store that cannot be
// opened is logged and leaves the engine in a degraded mode where queries
// return nothing and writes fail with ErrUnavailable.
func Open(cfg *config.Config, root string) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}

	resolver, err := index.NewCachedResolver(index.DirResolver{Root: abs}, resolverCapacity, cfg.Index.ResolverTTL)
	if err != nil {
		return nil, fmt.Errorf("file resolver: %w", err)
	}

	e := &Engine{cfg: cfg, root: abs, resolver: resolver}

	dbPath := cfg.IndexPath(abs)
	store, err := index.Open(dbPath, abs, index.WithResolver(resolver))
	if err != nil {
		log.Error("index store unavailable, queries will be empty", "path", dbPath, "error", err)
		e.index = query.New(nil)
		return e, nil
	}
	if store.Rebuilt() {
		log.Info("index schema changed, starting from an empty index", "path", dbPath)
	}

	e.store = store
	e.index = query.New(store)
	e.worker = index.NewIndexWorker(store, index.FileReader{Root: abs, MaxSize: cfg.Index.MaxFileSize}, index.WorkerConfigFrom(cfg.Index))
	return e, nil
}

func (e *Engine) Root() string {
	return e.root
}

// Available reports whether the store was opened.
func (e *Engine) Available() bool {
	return e.store != nil
}

// NeedsReindex is true while the store knows no file, as after creation or a
// rebuild for a schema change.
func (e *Engine) NeedsReindex(ctx context.Context) bool {
	if e.store == nil {
		return false
	}
	files, err := e.store.Files(ctx)
	return err == nil && len(files) == 0
}

func (e *Engine) Index() *query.Index {
	return e.index
}

// Rel turns a path into the project-relative slash form used as file handle.
// Paths outside the root are returned cleaned but otherwise unchanged.
func (e *Engine) Rel(file string) string {
	if filepath.IsAbs(file) {
		if rel, err := filepath.Rel(e.root, file); err == nil && !outside(filepath.ToSlash(rel)) {
			file = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(file))
}

// outside reports whether a slash path relative to the root climbs out of it.
func outside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

// Update indexes file from source, or from disk when source is nil. Once
// started the update runs to completion even if ctx is cancelled.
func (e *Engine) Update(ctx context.Context, file string, source *string) error {
	if e.store == nil {
		return ErrUnavailable
	}
	file = e.Rel(file)
	e.resolver.Forget(file)
	return e.worker.Process(context.WithoutCancel(ctx), index.IndexJob{Path: file, Kind: index.JobUpdate, Source: source})
}

func (e *Engine) Remove(ctx context.Context, file string) error {
	if e.store == nil {
		return ErrUnavailable
	}
	file = e.Rel(file)
	e.resolver.Forget(file)
	return e.worker.Process(context.WithoutCancel(ctx), index.IndexJob{Path: file, Kind: index.JobRemove})
}

// Enqueue hands a job to the background worker. It lets the engine act as
// the watcher's sink.
func (e *Engine) Enqueue(job index.IndexJob) bool {
	if e.store == nil {
		return false
	}
	e.resolver.Forget(job.Path)
	return e.worker.Enqueue(job)
}

// Progress is called after each file of a reindex.
type Progress func(done, total int)

type ReindexResult struct {
	Files   int
	Removed int
	Failed  int
}

// Reindex brings the whole project up to date: every discovered file is
// indexed, unchanged ones are skipped by content hash, and files the index
// knows but discovery no longer finds are removed.
func (e *Engine) Reindex(ctx context.Context, progress Progress) (ReindexResult, error) {
	var result ReindexResult
	if e.store == nil {
		return result, ErrUnavailable
	}

	files, err := discover.Files(ctx, e.root, e.cfg.Index)
	if err != nil {
		return result, fmt.Errorf("discover files: %w", err)
	}
	result.Files = len(files)

	known, err := e.store.Files(ctx)
	if err != nil {
		return result, err
	}
	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f] = struct{}{}
	}
	for _, f := range known {
		if _, ok := present[f.Path]; ok {
			continue
		}
		if err := e.Remove(ctx, f.Path); err != nil {
			log.Warn("failed to drop vanished file", "path", f.Path, "error", err)
			continue
		}
		result.Removed++
	}

	workers := e.cfg.Index.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	var done, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := e.Update(gctx, f, nil); err != nil {
				failed.Add(1)
			}
			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(files))
			}
			return nil
		})
	}
	err = g.Wait()
	result.Failed = int(failed.Load())
	if err == nil {
		err = ctx.Err()
	}

	log.Info("reindex finished", "files", result.Files, "removed", result.Removed, "failed", result.Failed)
	return result, err
}

func (e *Engine) Stats(ctx context.Context) (*index.Stats, error) {
	if e.store == nil {
		return nil, ErrUnavailable
	}
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	ws := e.worker.GetStats()
	stats.Worker = &ws
	return stats, nil
}

// RunOptions selects the long-running services of Run.
type RunOptions struct {
	Watch      bool
	SocketPath string
}

// Run keeps the index live until ctx is done: the worker drains jobs, the
// watcher feeds it file changes and, with a socket path, the RPC server
// answers clients.
func (e *Engine) Run(ctx context.Context, opts RunOptions) error {
	if e.store == nil && opts.SocketPath == "" {
		return ErrUnavailable
	}

	g, ctx := errgroup.WithContext(ctx)

	if e.worker != nil {
		e.worker.Start()
		// Runs after the watcher has stopped and flushed its last batch; Stop
		// processes what is still queued.
		defer e.worker.Stop()
	}

	if opts.Watch && e.store != nil {
		w, err := watcher.New(e.root, e.cfg.Watcher, e.cfg.Index.Extensions, e)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return fmt.Errorf("start watcher: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			return w.Stop()
		})
	}

	if opts.SocketPath != "" {
		d := daemon.New(opts.SocketPath)
		g.Go(func() error {
			return d.Run(ctx, rpc.NewServer(e))
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	return g.Wait()
}

func (e *Engine) Close() error {
	e.resolver.Close()
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
