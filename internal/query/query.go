// Package query turns raw index entries into typed definitions for editor
// tooling: what is declared in a file, and what other files declare globally.
package query

import (
	"context"
	"sort"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/logger"
)

var log = logger.ForComponent("query")

// Querier is the prefix query primitive of the index store.
type Querier interface {
	Query(ctx context.Context, key index.Key, prefix string) []index.Result
}

// FileQuerier is implemented by stores that can read one file's entries
// directly. The index uses it for file-scoped operations when available.
type FileQuerier interface {
	InFile(ctx context.Context, file string, keys ...index.Key) []index.Result
}

type Index struct {
	store Querier
}

// New wraps store. A nil store gives an index that always answers empty, so
// callers keep working when the store could not be opened.
func New(store Querier) *Index {
	return &Index{store: store}
}

// FieldsInFile returns class fields, root fields and method parameters
// declared in file. Parameters are included because they are usable as
// values inside the file just like fields.
func (x *Index) FieldsInFile(ctx context.Context, file string) []definition.Definition {
	return x.inFile(ctx, file, index.FieldKey, index.RootFieldKey, index.MethodParamKey)
}

func (x *Index) ClassesInFile(ctx context.Context, file string) []definition.Definition {
	return x.inFile(ctx, file, index.RootClassKey)
}

func (x *Index) ClassFields(ctx context.Context, file string) []definition.Definition {
	return x.inFile(ctx, file, index.ClassFieldKey)
}

func (x *Index) ClassMethods(ctx context.Context, file string) []definition.Definition {
	return x.inFile(ctx, file, index.ClassMethodKey)
}

// ClassMembers is ClassFields and ClassMethods together, in source order.
func (x *Index) ClassMembers(ctx context.Context, file string) []definition.Definition {
	return x.inFile(ctx, file, index.ClassFieldKey, index.ClassMethodKey)
}

func (x *Index) MethodsInFile(ctx context.Context, file string) []definition.Definition {
	return x.inFile(ctx, file, index.MethodKey, index.RootMethodKey)
}

// RootMethodsFromOtherFiles returns top-level functions declared anywhere in
// the project except file.
func (x *Index) RootMethodsFromOtherFiles(ctx context.Context, file string) []definition.Definition {
	return x.fromOtherFiles(ctx, file, index.RootMethodKey)
}

func (x *Index) RootFieldsFromOtherFiles(ctx context.Context, file string) []definition.Definition {
	return x.fromOtherFiles(ctx, file, index.RootFieldKey)
}

func (x *Index) ClassesFromOtherFiles(ctx context.Context, file string) []definition.Definition {
	return x.fromOtherFiles(ctx, file, index.RootClassKey)
}

// Outline returns every definition of file in source order.
func (x *Index) Outline(ctx context.Context, file string) []definition.Definition {
	return x.inFile(ctx, file, index.AllKeys...)
}

// Parent resolves the weak parent link of d.
func (x *Index) Parent(ctx context.Context, d definition.Definition) (definition.Definition, bool) {
	if !d.HasParent() {
		return definition.Definition{}, false
	}

	var keys []index.Key
	switch d.Kind {
	case definition.Parameter:
		keys = []index.Key{index.MethodKey, index.RootMethodKey}
	case definition.Method, definition.Field:
		keys = []index.Key{index.ClassKey}
	default:
		return definition.Definition{}, false
	}

	for _, candidate := range x.inFile(ctx, d.File, keys...) {
		if candidate.ID == d.ParentID {
			return candidate, true
		}
	}
	return definition.Definition{}, false
}

// searchKeys cover every declaration once; parameters are left out.
var searchKeys = []index.Key{
	index.ClassKey,
	index.MethodKey, index.RootMethodKey,
	index.FieldKey, index.RootFieldKey,
}

// Search finds declarations across the project whose name starts with prefix.
func (x *Index) Search(ctx context.Context, prefix string) []definition.Definition {
	if x.store == nil {
		return nil
	}
	escaped := definition.EscapeName(prefix)
	var results []index.Result
	for _, k := range searchKeys {
		results = append(results, x.store.Query(ctx, k, escaped)...)
	}
	return decodeAll(results)
}

func (x *Index) inFile(ctx context.Context, file string, keys ...index.Key) []definition.Definition {
	if x.store == nil {
		return nil
	}
	if fq, ok := x.store.(FileQuerier); ok {
		return decodeAll(fq.InFile(ctx, file, keys...))
	}

	var results []index.Result
	for _, k := range keys {
		for _, r := range x.store.Query(ctx, k, "") {
			if r.File == file {
				results = append(results, r)
			}
		}
	}
	return decodeAll(results)
}

func (x *Index) fromOtherFiles(ctx context.Context, file string, key index.Key) []definition.Definition {
	if x.store == nil {
		return nil
	}
	var results []index.Result
	for _, r := range x.store.Query(ctx, key, "") {
		if r.File != file {
			results = append(results, r)
		}
	}
	return decodeAll(results)
}

// decodeAll rebuilds definitions, dropping undecodable entries and the
// duplicates that appear when one definition is filed under several keys.
func decodeAll(results []index.Result) []definition.Definition {
	type ref struct{ file, id string }

	seen := make(map[ref]struct{}, len(results))
	out := make([]definition.Definition, 0, len(results))
	for _, r := range results {
		d, err := definition.Decode(r.Value, r.File)
		if err != nil {
			log.Warn("skipping undecodable entry", "file", r.File, "key", r.Key, "error", err)
			continue
		}
		k := ref{d.File, d.ID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Position.Start < out[j].Position.Start
	})
	return out
}
