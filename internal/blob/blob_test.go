package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPutWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewLocal(dir)
	require.NoError(t, err)

	path, err := s.Put(context.Background(), "abc.jpg", []byte("image-bytes"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "abc.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("image-bytes"), data)
}

func TestLocalPutOverwritesExistingFile(t *testing.T) {
	t.Parallel()

	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.Put(ctx, "abc.jpg", []byte("old"))
	require.NoError(t, err)
	path, err := s.Put(ctx, "abc.jpg", []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), data)
}

func TestLocalPutRejectsEscapingName(t *testing.T) {
	t.Parallel()

	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../escape.jpg", []byte("x"))
	require.Error(t, err)
}

func TestLocalPutRejectsEmptyName(t *testing.T) {
	t.Parallel()

	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "  ", []byte("x"))
	require.Error(t, err)
}

func TestNewLocalCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "paintings")
	_, err := NewLocal(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNewLocalRejectsFilePath(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := NewLocal(file)
	require.Error(t, err)
}

func TestNewLocalRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewLocal("  ")
	require.Error(t, err)
}
