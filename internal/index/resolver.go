package index

import (
	"os"
	"path/filepath"
	"time"

	"github.com/maypok86/otter"
)

// FileResolver reports whether a file handle still refers to a live file.
// Entries of files that no longer resolve are dropped from query results.
type FileResolver interface {
	Resolves(file string) bool
}

// ResolverFunc adapts a function to FileResolver.
type ResolverFunc func(file string) bool

func (f ResolverFunc) Resolves(file string) bool { return f(file) }

// DirResolver resolves project-relative slash paths under Root.
type DirResolver struct {
	Root string
}

func (r DirResolver) Resolves(file string) bool {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, filepath.FromSlash(file))
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CachedResolver remembers files that failed to resolve for a short TTL.
// Stale rows of a vanished file are hit on every query until the file is
// removed from the index. Positive answers are never cached, so a file
// deleted behind the watcher's back drops out of the very next query.
type CachedResolver struct {
	next  FileResolver
	cache otter.Cache[string, bool]
}

func NewCachedResolver(next FileResolver, capacity int, ttl time.Duration) (*CachedResolver, error) {
	cache, err := otter.MustBuilder[string, bool](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}
	return &CachedResolver{next: next, cache: cache}, nil
}

func (r *CachedResolver) Resolves(file string) bool {
	if _, hit := r.cache.Get(file); hit {
		return false
	}
	if r.next.Resolves(file) {
		return true
	}
	r.cache.Set(file, false)
	return false
}

// Forget drops the cached answer for file, e.g. after a watcher event.
func (r *CachedResolver) Forget(file string) {
	r.cache.Delete(file)
}

func (r *CachedResolver) Close() {
	r.cache.Close()
}
