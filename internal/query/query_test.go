package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/parser"
)

const (
	f1Source = "class Foo\n  bar: (x) -> x + 1"
	f2Source = "add = (a, b) -> a + b\n"
)

type project struct {
	root  string
	store *index.Store
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"), root,
		index.WithResolver(index.DirResolver{Root: root}))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &project{root: root, store: store}
}

func (p *project) add(t *testing.T, file, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.root, file), []byte(src), 0o644))
	_, err := p.store.Replace(context.Background(), file, index.ContentHash(src),
		index.Flatten(parser.ExtractSource(file, src)))
	require.NoError(t, err)
}

func names(defs []definition.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

// queryOnly hides InFile so the index falls back to filtering prefix queries.
type queryOnly struct {
	store *index.Store
}

func (q queryOnly) Query(ctx context.Context, key index.Key, prefix string) []index.Result {
	return q.store.Query(ctx, key, prefix)
}

func TestIndex_ClassWithMethod(t *testing.T) {
	p := newProject(t)
	p.add(t, "f1.coffee", f1Source)
	ctx := context.Background()

	for name, idx := range map[string]*Index{"in file": New(p.store), "prefix scan": New(queryOnly{p.store})} {
		t.Run(name, func(t *testing.T) {
			classes := idx.ClassesInFile(ctx, "f1.coffee")
			require.Len(t, classes, 1)
			foo := classes[0]
			assert.Equal(t, "Foo", foo.Name)
			assert.Equal(t, definition.Class, foo.Kind)
			assert.Equal(t, "f1.coffee", foo.File)

			methods := idx.ClassMethods(ctx, "f1.coffee")
			require.Len(t, methods, 1)
			bar := methods[0]
			assert.Equal(t, "bar", bar.Name)
			assert.Equal(t, definition.Method, bar.Kind)
			assert.Equal(t, foo.ID, bar.ParentID)

			parent, ok := idx.Parent(ctx, bar)
			require.True(t, ok)
			assert.Equal(t, foo, parent)

			fields := idx.FieldsInFile(ctx, "f1.coffee")
			require.Len(t, fields, 1)
			x := fields[0]
			assert.Equal(t, "x", x.Name)
			assert.Equal(t, definition.Parameter, x.Kind)

			parent, ok = idx.Parent(ctx, x)
			require.True(t, ok)
			assert.Equal(t, bar, parent)

			assert.Empty(t, idx.ClassFields(ctx, "f1.coffee"))
			assert.Equal(t, []string{"bar"}, names(idx.ClassMembers(ctx, "f1.coffee")))
			assert.Equal(t, []string{"Foo", "bar", "x"}, names(idx.Outline(ctx, "f1.coffee")))
		})
	}
}

func TestIndex_RootMethodAcrossFiles(t *testing.T) {
	p := newProject(t)
	p.add(t, "f1.coffee", f1Source)
	p.add(t, "f2.coffee", f2Source)
	idx := New(p.store)
	ctx := context.Background()

	methods := idx.MethodsInFile(ctx, "f2.coffee")
	require.Len(t, methods, 1)
	add := methods[0]
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, definition.Root, add.Scope)
	assert.False(t, add.HasParent())
	_, ok := idx.Parent(ctx, add)
	assert.False(t, ok)

	others := idx.RootMethodsFromOtherFiles(ctx, "f1.coffee")
	assert.Equal(t, []string{"add"}, names(others))
	assert.Empty(t, idx.RootMethodsFromOtherFiles(ctx, "f2.coffee"))

	assert.Equal(t, []string{"Foo"}, names(idx.ClassesFromOtherFiles(ctx, "f2.coffee")))
	assert.Empty(t, idx.ClassesFromOtherFiles(ctx, "f1.coffee"))
	assert.Equal(t, []string{"a", "b"}, names(idx.FieldsInFile(ctx, "f2.coffee")))
}

func TestIndex_DeletedFileDisappears(t *testing.T) {
	p := newProject(t)
	p.add(t, "f1.coffee", f1Source)
	p.add(t, "f2.coffee", f2Source+"LIMIT = 3\n")
	idx := New(p.store)
	ctx := context.Background()

	require.Len(t, idx.ClassesInFile(ctx, "f1.coffee"), 1)
	require.NoError(t, os.Remove(filepath.Join(p.root, "f1.coffee")))

	assert.Empty(t, idx.ClassesInFile(ctx, "f1.coffee"))
	assert.Empty(t, idx.ClassMethods(ctx, "f1.coffee"))
	assert.Empty(t, idx.ClassesFromOtherFiles(ctx, "f2.coffee"))
	assert.Equal(t, []string{"add"}, names(idx.RootMethodsFromOtherFiles(ctx, "f1.coffee")))
	assert.Equal(t, []string{"LIMIT"}, names(idx.RootFieldsFromOtherFiles(ctx, "f1.coffee")))
	assert.Empty(t, idx.Search(ctx, "Fo"))
}

func TestIndex_Search(t *testing.T) {
	p := newProject(t)
	p.add(t, "f1.coffee", "class Foo\n  format: (x) ->\n  fooSize: 1\n")
	p.add(t, "f2.coffee", "forEach = ->\nbar = 1\n")
	idx := New(p.store)
	ctx := context.Background()

	got := idx.Search(ctx, "fo")
	assert.Equal(t, []string{"format", "fooSize", "forEach"}, names(got))
	assert.Equal(t, []string{"Foo"}, names(idx.Search(ctx, "Fo")))
	assert.Len(t, idx.Search(ctx, ""), 5)
}

type fakeQuerier map[index.Key][]index.Result

func (f fakeQuerier) Query(_ context.Context, key index.Key, _ string) []index.Result {
	return f[key]
}

func TestIndex_SkipsUndecodableEntries(t *testing.T) {
	idx := New(fakeQuerier{
		index.RootClassKey: {
			{Key: index.RootClassKey, File: "f1.coffee", Value: "garbage"},
			{Key: index.RootClassKey, File: "f1.coffee", Value: "Foo;C;R;C6;;6;9;1;7"},
		},
	})

	got := idx.ClassesInFile(context.Background(), "f1.coffee")
	require.Len(t, got, 1)
	assert.Equal(t, "Foo", got[0].Name)
}

func TestIndex_NilStoreIsEmpty(t *testing.T) {
	idx := New(nil)
	ctx := context.Background()

	assert.Empty(t, idx.ClassesInFile(ctx, "f1.coffee"))
	assert.Empty(t, idx.RootMethodsFromOtherFiles(ctx, "f1.coffee"))
	assert.Empty(t, idx.Search(ctx, "a"))
	_, ok := idx.Parent(ctx, definition.Definition{Kind: definition.Method, ParentID: "C0"})
	assert.False(t, ok)
}
