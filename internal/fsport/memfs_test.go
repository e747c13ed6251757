package fsport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemFS_WriteThenReadFile(t *testing.T) {
	fs := NewMemFS()

	require.NoError(t, fs.WriteFile("notes/a.md", []byte("hello"), 0o644))

	data, err := fs.ReadFile("notes/a.md")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestMemFS_WalkVisitsDirsAndFiles(t *testing.T) {
	fs := NewMemFS()

	require.NoError(t, fs.WriteFile("a/b.md", []byte("x"), 0o644))
	require.NoError(t, fs.WriteFile("a/c.md", []byte("y"), 0o644))

	var seen []string

	err := fs.Walk("", func(path string, info Info, err error) error {
		if err != nil {
			return err
		}

		seen = append(seen, path)

		return nil
	})
	require.NoError(t, err)
	require.Contains(t, seen, "a/b.md")
	require.Contains(t, seen, "a/c.md")
	require.Contains(t, seen, "a")
}

func TestMemFS_RemoveAllRemovesSubtree(t *testing.T) {
	fs := NewMemFS()

	require.NoError(t, fs.WriteFile("a/b.md", []byte("x"), 0o644))
	require.NoError(t, fs.RemoveAll("a"))

	exists, err := fs.Exists("a/b.md")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestMemFS_RenameMovesEntry(t *testing.T) {
	fs := NewMemFS()

	require.NoError(t, fs.WriteFile("a.md", []byte("x"), 0o644))
	require.NoError(t, fs.Rename("a.md", "b/a.md"))

	_, err := fs.ReadFile("a.md")
	require.Error(t, err)

	data, err := fs.ReadFile("b/a.md")
	require.NoError(t, err)
	require.Equal(t, "x", string(data))
}
