package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_StoreThenOpen(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "exports", "final.mp4")
	store := NewDiskStore()
	ctx := context.Background()

	uri := "file://" + dest
	require.NoError(t, store.Store(ctx, uri, strings.NewReader("encoded bytes")))
	assert.FileExists(t, dest)

	reader, err := store.Open(ctx, uri)
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "encoded bytes", string(content))
}

func TestDiskStore_StoreFailureLeavesNoPartial(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "final.mp4")
	store := NewDiskStore()

	broken := io.MultiReader(strings.NewReader("partial"), failingReader{})
	err := store.Store(context.Background(), "file://"+dest, broken)

	require.Error(t, err)
	assert.NoFileExists(t, dest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// failingReader errors after any preceding readers are drained
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestDiskStore_Exists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	store := NewDiskStore()
	ctx := context.Background()

	exists, err := store.Exists(ctx, "file://"+existing)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "file://"+filepath.Join(dir, "missing.mp4"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiskStore_RejectsOtherSchemes(t *testing.T) {
	store := NewDiskStore()

	_, err := store.Open(context.Background(), "https://example.com/a.mp4")
	assert.Error(t, err)
}
