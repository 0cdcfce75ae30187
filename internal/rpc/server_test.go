package rpc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/parser"
	"github.com/alucardeht/coffeeidx/internal/query"
)

type storeBackend struct {
	root  string
	store *index.Store
	fail  error
}

func (b *storeBackend) Root() string { return b.root }

func (b *storeBackend) Rel(path string) string {
	if rel, err := filepath.Rel(b.root, path); err == nil && filepath.IsAbs(path) {
		return filepath.ToSlash(rel)
	}
	return path
}

func (b *storeBackend) Index() *query.Index { return query.New(b.store) }

func (b *storeBackend) Update(ctx context.Context, file string, source *string) error {
	if b.fail != nil {
		return b.fail
	}
	file = b.Rel(file)
	src := ""
	if source != nil {
		src = *source
		if err := os.WriteFile(filepath.Join(b.root, file), []byte(src), 0o644); err != nil {
			return err
		}
	}
	_, err := b.store.Replace(ctx, file, index.ContentHash(src), index.Flatten(parser.ExtractSource(file, src)))
	return err
}

func (b *storeBackend) Remove(ctx context.Context, file string) error {
	return b.store.Remove(ctx, b.Rel(file))
}

func (b *storeBackend) Stats(ctx context.Context) (*index.Stats, error) {
	return b.store.Stats(ctx)
}

func connect(t *testing.T) (*Client, *storeBackend) {
	t.Helper()
	root := t.TempDir()
	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"), root,
		index.WithResolver(index.DirResolver{Root: root}))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	backend := &storeBackend{root: root, store: store}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverSide, clientSide := net.Pipe()
	NewServer(backend).ServeConn(ctx, serverSide)
	client := NewClient(ctx, clientSide)
	t.Cleanup(func() { client.Close() })
	return client, backend
}

func ptr(s string) *string { return &s }

func names(defs []definition.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func TestServer_UpdateAndQuery(t *testing.T) {
	client, _ := connect(t)
	ctx := context.Background()

	require.NoError(t, client.Update(ctx, "f1.coffee", ptr("class Foo\n  bar: (x) -> x + 1")))
	require.NoError(t, client.Update(ctx, "f2.coffee", ptr("add = (a, b) -> a + b\n")))

	classes, err := client.Definitions(ctx, MethodClassesInFile, "f1.coffee")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Foo", classes[0].Name)
	assert.Equal(t, definition.Class, classes[0].Kind)
	assert.Equal(t, definition.Position{Start: 6, End: 9, Line: 1, Column: 7}, classes[0].Position)

	methods, err := client.Definitions(ctx, MethodClassMethods, "f1.coffee")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, classes[0].ID, methods[0].ParentID)

	others, err := client.Definitions(ctx, MethodRootMethodsFromOtherFiles, "f1.coffee")
	require.NoError(t, err)
	assert.Equal(t, []string{"add"}, names(others))

	outline, err := client.Definitions(ctx, MethodOutline, "f1.coffee")
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo", "bar", "x"}, names(outline))

	found, err := client.Search(ctx, "ad")
	require.NoError(t, err)
	assert.Equal(t, []string{"add"}, names(found))

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
}

func TestServer_AbsolutePaths(t *testing.T) {
	client, backend := connect(t)
	ctx := context.Background()
	abs := filepath.Join(backend.root, "f1.coffee")

	require.NoError(t, client.Update(ctx, abs, ptr("class Foo\n  bar: ->\n")))

	for _, file := range []string{abs, "f1.coffee"} {
		classes, err := client.Definitions(ctx, MethodClassesInFile, file)
		require.NoError(t, err)
		assert.Equal(t, []string{"Foo"}, names(classes), file)

		outline, err := client.Definitions(ctx, MethodOutline, file)
		require.NoError(t, err)
		assert.Equal(t, []string{"Foo", "bar"}, names(outline), file)
	}

	others, err := client.Definitions(ctx, MethodClassesFromOtherFiles, abs)
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, client.Remove(ctx, abs))
	classes, err := client.Definitions(ctx, MethodClassesInFile, "f1.coffee")
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestServer_RemoveAndEmptyAnswers(t *testing.T) {
	client, _ := connect(t)
	ctx := context.Background()

	require.NoError(t, client.Update(ctx, "f1.coffee", ptr("class Foo\n")))
	require.NoError(t, client.Remove(ctx, "f1.coffee"))

	classes, err := client.Definitions(ctx, MethodClassesInFile, "f1.coffee")
	require.NoError(t, err)
	assert.NotNil(t, classes)
	assert.Empty(t, classes)
}

func TestServer_Errors(t *testing.T) {
	client, backend := connect(t)
	ctx := context.Background()

	var rpcErr *jsonrpc2.Error

	err := client.Call(ctx, "index/nope", nil, nil)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)

	_, err = client.Definitions(ctx, MethodFieldsInFile, "")
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), rpcErr.Code)

	backend.fail = errors.New("disk full")
	err = client.Update(ctx, "f1.coffee", ptr("a = 1"))
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeInternalError), rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "disk full")
}
