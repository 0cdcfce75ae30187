package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirResolver(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.coffee", "a = 1\n")

	r := DirResolver{Root: root}
	assert.True(t, r.Resolves("src/a.coffee"))
	assert.True(t, r.Resolves(filepath.Join(root, "src", "a.coffee")))
	assert.False(t, r.Resolves("src/missing.coffee"))
	assert.False(t, r.Resolves("src"))
}

func TestCachedResolver(t *testing.T) {
	live := map[string]bool{"a.coffee": true}
	calls := 0
	next := ResolverFunc(func(file string) bool {
		calls++
		return live[file]
	})

	r, err := NewCachedResolver(next, 128, time.Minute)
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.Resolves("b.coffee"))
	assert.False(t, r.Resolves("b.coffee"))
	assert.Equal(t, 1, calls)

	live["b.coffee"] = true
	assert.False(t, r.Resolves("b.coffee"))
	r.Forget("b.coffee")
	assert.True(t, r.Resolves("b.coffee"))
	assert.Equal(t, 2, calls)

	assert.True(t, r.Resolves("a.coffee"))
	delete(live, "a.coffee")
	assert.False(t, r.Resolves("a.coffee"))
	assert.Equal(t, 4, calls)
}
