package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/coffeeidx/internal/config"
	"github.com/alucardeht/coffeeidx/internal/index"
)

type recordingSink struct {
	mu   sync.Mutex
	jobs []index.IndexJob
}

func (s *recordingSink) Enqueue(job index.IndexJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return true
}

func (s *recordingSink) has(path string, kind index.JobKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.Path == path && j.Kind == kind {
			return true
		}
	}
	return false
}

func (s *recordingSink) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Path)
	}
	return out
}

func startWatcher(t *testing.T, root string) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	cfg := config.WatcherConfig{
		DebounceWindow: 20 * time.Millisecond,
		MaxBatchSize:   100,
		IgnorePatterns: []string{"**/node_modules/**"},
	}
	w, err := New(root, cfg, []string{".coffee"}, sink)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { w.Stop() })
	return sink
}

func TestWatcher_FileLifecycle(t *testing.T) {
	root := t.TempDir()
	sink := startWatcher(t, root)
	file := filepath.Join(root, "a.coffee")

	require.NoError(t, os.WriteFile(file, []byte("a = 1\n"), 0o644))
	require.Eventually(t, func() bool { return sink.has("a.coffee", index.JobUpdate) },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(file))
	require.Eventually(t, func() bool { return sink.has("a.coffee", index.JobRemove) },
		2*time.Second, 10*time.Millisecond)
}

func TestWatcher_NewDirectory(t *testing.T) {
	root := t.TempDir()
	sink := startWatcher(t, root)

	dir := filepath.Join(root, "src", "models")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.coffee"), []byte("class User\n"), 0o644))

	require.Eventually(t, func() bool { return sink.has("src/models/user.coffee", index.JobUpdate) },
		2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresForeignAndExcludedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "lib"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))
	sink := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "lib", "x.coffee"), []byte("x = 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "y.coffee"), []byte("y = 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.coffee"), []byte("b = 1"), 0o644))

	require.Eventually(t, func() bool { return sink.has("b.coffee", index.JobUpdate) },
		2*time.Second, 10*time.Millisecond)
	for _, p := range sink.paths() {
		assert.Equal(t, "b.coffee", p)
	}
}

func TestNew_RequiresSink(t *testing.T) {
	_, err := New(t.TempDir(), config.WatcherConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestWatcher_Relative(t *testing.T) {
	root := t.TempDir()
	w := &Watcher{root: root}

	cases := map[string]struct {
		path string
		want string
		ok   bool
	}{
		"nested":      {filepath.Join(root, "src", "a.coffee"), "src/a.coffee", true},
		"dotted name": {filepath.Join(root, "..hidden.coffee"), "..hidden.coffee", true},
		"root":        {root, "", false},
		"parent":      {filepath.Dir(root), "", false},
		"sibling":     {filepath.Join(filepath.Dir(root), "other", "a.coffee"), "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := w.relative(tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
