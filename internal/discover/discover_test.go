package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/coffeeidx/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeFile(t, root, "app.coffee", "a = 1")
	writeFile(t, root, "lib/util.coffee", "b = 1")
	writeFile(t, root, "lib/notes.txt", "hello")
	writeFile(t, root, ".hidden.coffee", "c = 1")
	writeFile(t, root, ".cache/x.coffee", "d = 1")
	writeFile(t, root, "node_modules/pkg/index.coffee", "e = 1")
	writeFile(t, root, "generated/out.coffee", "f = 1")
	writeFile(t, root, "tmp.coffee", "g = 1")
	writeFile(t, root, ".gitignore", "generated/\ntmp.coffee\n")

	files, err := Files(context.Background(), root, config.Default().Index)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.coffee", "lib/util.coffee"}, files)
}

func TestFiles_CustomExtensionsAndExcludes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeFile(t, root, "a.coffee", "")
	writeFile(t, root, "b.litcoffee", "")
	writeFile(t, root, "spec/a_spec.coffee", "")

	cfg := config.Default().Index
	cfg.Extensions = []string{".coffee", ".litcoffee"}
	cfg.ExcludePatterns = []string{"spec/**"}

	files, err := Files(context.Background(), root, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.coffee", "b.litcoffee"}, files)
}

func TestFiles_Cancelled(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "a.coffee", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Files(ctx, root, config.Default().Index)
	assert.ErrorIs(t, err, context.Canceled)
}
