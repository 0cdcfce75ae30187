package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/coffeeidx/internal/config"
	"github.com/alucardeht/coffeeidx/internal/daemon"
	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/rpc"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Index.Dir = t.TempDir()
	cfg.Index.RateLimit = 0
	cfg.Watcher.DebounceWindow = 20 * time.Millisecond
	return cfg
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func openEngine(t *testing.T, root string) *Engine {
	t.Helper()
	e, err := Open(testConfig(t), root)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func names(defs []definition.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func TestEngine_Reindex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/f1.coffee", "class Foo\n  bar: (x) -> x + 1")
	writeFile(t, root, "src/f2.coffee", "add = (a, b) -> a + b\n")
	writeFile(t, root, "node_modules/lib/x.coffee", "class Vendored\n")
	writeFile(t, root, "README.md", "# readme\n")

	e := openEngine(t, root)
	ctx := context.Background()
	assert.True(t, e.Available())
	assert.True(t, e.NeedsReindex(ctx))

	var calls atomic.Int32
	res, err := e.Reindex(ctx, func(done, total int) {
		calls.Add(1)
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	assert.Equal(t, ReindexResult{Files: 2}, res)
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, e.NeedsReindex(ctx))

	idx := e.Index()
	assert.Equal(t, []string{"Foo"}, names(idx.ClassesInFile(ctx, "src/f1.coffee")))
	assert.Equal(t, []string{"add"}, names(idx.RootMethodsFromOtherFiles(ctx, "src/f1.coffee")))
	assert.Empty(t, idx.Search(ctx, "Vendored"))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	require.NotNil(t, stats.Worker)
	assert.Equal(t, int64(2), stats.Worker.Indexed)

	require.NoError(t, os.Remove(filepath.Join(root, "src", "f1.coffee")))
	res, err = e.Reindex(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, ReindexResult{Files: 1, Removed: 1}, res)
	assert.Empty(t, idx.ClassesFromOtherFiles(ctx, "src/f2.coffee"))
}

func TestEngine_UpdateAndRemove(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.coffee", "")
	e := openEngine(t, root)
	ctx := context.Background()

	src := "class Widget\n  render: ->\n"
	require.NoError(t, e.Update(ctx, filepath.Join(root, "a.coffee"), &src))
	assert.Equal(t, []string{"Widget", "render"}, names(e.Index().Outline(ctx, "a.coffee")))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	src = "class Panel\n"
	require.NoError(t, e.Update(cancelled, "./a.coffee", &src))
	assert.Equal(t, []string{"Panel"}, names(e.Index().Outline(ctx, "a.coffee")))

	require.NoError(t, e.Remove(ctx, "a.coffee"))
	assert.Empty(t, e.Index().Outline(ctx, "a.coffee"))
}

func TestEngine_Rel(t *testing.T) {
	root := t.TempDir()
	e := openEngine(t, root)

	assert.Equal(t, "src/a.coffee", e.Rel(filepath.Join(root, "src", "a.coffee")))
	assert.Equal(t, "src/a.coffee", e.Rel("src/./a.coffee"))
	assert.Equal(t, "a.coffee", e.Rel("./a.coffee"))
	assert.Equal(t, "..hidden.coffee", e.Rel(filepath.Join(root, "..hidden.coffee")))

	outsider := filepath.Join(filepath.Dir(root), "other", "b.coffee")
	assert.Equal(t, filepath.ToSlash(outsider), e.Rel(outsider))
}

func TestEngine_ExternalDeleteIsHiddenAtOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f1.coffee", "class Foo\n")
	writeFile(t, root, "f2.coffee", "add = (a, b) -> a + b\n")
	cfg := testConfig(t)
	cfg.Index.ResolverTTL = time.Hour
	e, err := Open(cfg, root)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	require.NoError(t, e.Update(ctx, "f1.coffee", nil))
	require.NoError(t, e.Update(ctx, "f2.coffee", nil))
	require.Equal(t, []string{"Foo"}, names(e.Index().ClassesInFile(ctx, "f1.coffee")))
	require.Equal(t, []string{"Foo"}, names(e.Index().ClassesFromOtherFiles(ctx, "f2.coffee")))

	require.NoError(t, os.Remove(filepath.Join(root, "f1.coffee")))
	assert.Empty(t, e.Index().ClassesInFile(ctx, "f1.coffee"))
	assert.Empty(t, e.Index().ClassesFromOtherFiles(ctx, "f2.coffee"))

	writeFile(t, root, "f1.coffee", "class Foo\n")
	require.NoError(t, e.Update(ctx, "f1.coffee", nil))
	assert.Equal(t, []string{"Foo"}, names(e.Index().ClassesInFile(ctx, "f1.coffee")))
}

func TestEngine_DegradedWhenStoreFails(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.Index.Dir = blocker

	e, err := Open(cfg, root)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	assert.False(t, e.Available())
	assert.False(t, e.NeedsReindex(ctx))
	assert.Empty(t, e.Index().ClassesInFile(ctx, "a.coffee"))
	assert.ErrorIs(t, e.Update(ctx, "a.coffee", nil), ErrUnavailable)
	_, err = e.Reindex(ctx, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, e.Enqueue(indexJob("a.coffee")))
}

func TestOpen_RejectsMissingRoot(t *testing.T) {
	_, err := Open(testConfig(t), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEngine_RunWatchesAndServes(t *testing.T) {
	root := t.TempDir()
	e := openEngine(t, root)
	socket := filepath.Join(t.TempDir(), "idx.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, RunOptions{Watch: true, SocketPath: socket}) }()

	require.Eventually(t, func() bool { return daemon.Running(socket) }, 2*time.Second, 10*time.Millisecond)

	writeFile(t, root, "live.coffee", "class Live\n")
	require.Eventually(t, func() bool {
		return len(e.Index().ClassesInFile(context.Background(), "live.coffee")) == 1
	}, 3*time.Second, 20*time.Millisecond)

	client, err := rpc.Dial(ctx, socket)
	require.NoError(t, err)
	classes, err := client.Definitions(ctx, rpc.MethodClassesInFile, "live.coffee")
	require.NoError(t, err)
	assert.Equal(t, []string{"Live"}, names(classes))
	client.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}
}

func indexJob(file string) index.IndexJob {
	return index.IndexJob{Path: file}
}
