package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			data := []byte("hello world, this is a test blob for lshgo")

			require.NoError(t, store.Put(ctx, "index/a.lsh", data))

			got, err := store.Get(ctx, "index/a.lsh")
			require.NoError(t, err)
			assert.Equal(t, data, got)

			// Overwrite replaces the content.
			require.NoError(t, store.Put(ctx, "index/a.lsh", []byte("v2")))
			got, err = store.Get(ctx, "index/a.lsh")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)

			require.NoError(t, store.Delete(ctx, "index/a.lsh"))
			_, err = store.Get(ctx, "index/a.lsh")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting twice is fine.
			assert.NoError(t, store.Delete(ctx, "index/a.lsh"))
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			for _, n := range []string{"b/2", "a/1", "b/1", "c"} {
				require.NoError(t, store.Put(ctx, n, []byte(n)))
			}

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"a/1", "b/1", "b/2", "c"}, all)

			bs, err := store.List(ctx, "b/")
			require.NoError(t, err)
			assert.Equal(t, []string{"b/1", "b/2"}, bs)

			none, err := store.List(ctx, "zzz")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(t.Context(), "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestStore_CanceledContext(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			cancel()

			assert.ErrorIs(t, store.Put(ctx, "x", []byte("x")), context.Canceled)
			_, err := store.Get(ctx, "x")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", data))
	data[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := t.Context()

	for _, name := range []string{"", "../outside", "/abs/path"} {
		err := store.Put(ctx, name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalStore_ListSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "idx", []byte("x")))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".idx.tmp-123"), []byte("partial"), 0o644))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"idx"}, names)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))

	names, err := store.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
