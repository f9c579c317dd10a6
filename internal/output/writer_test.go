package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dainiki/internal/apperr"
)

func tempWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(filepath.Join(t.TempDir(), "a", "b", "build"))
	require.NoError(t, err)
	return w
}

func TestReset_CreatesMissingDir(t *testing.T) {
	w := tempWriter(t)
	require.NoError(t, w.Reset())

	info, err := os.Stat(w.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestReset_EmptiesExistingDir(t *testing.T) {
	w := tempWriter(t)
	require.NoError(t, os.MkdirAll(filepath.Join(w.Root(), "nested", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(w.Root(), "old.html"), []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(w.Root(), "nested", "deep", "x.html"), []byte("stale"), 0o644))
	before, err := os.Stat(w.Root())
	require.NoError(t, err)

	require.NoError(t, w.Reset())

	entries, err := os.ReadDir(w.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)

	after, err := os.Stat(w.Root())
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "root directory itself must be kept")
}

func TestReset_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	w, err := NewWriter(path)
	require.NoError(t, err)
	assert.Error(t, w.Reset())
}

func TestWritePage(t *testing.T) {
	w := tempWriter(t)
	require.NoError(t, w.Reset())

	rec, err := w.WritePage("hello-world.html", []byte("<p>hi</p>"))
	require.NoError(t, err)
	assert.Equal(t, "hello-world.html", rec.Name)
	assert.Equal(t, int64(9), rec.Size)
	assert.Len(t, rec.Checksum, 64)

	got, err := os.ReadFile(filepath.Join(w.Root(), "hello-world.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(got))

	info, err := os.Stat(filepath.Join(w.Root(), "hello-world.html"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWritePage_Overwrites(t *testing.T) {
	w := tempWriter(t)
	require.NoError(t, w.Reset())

	_, err := w.WritePage("index.html", []byte("one"))
	require.NoError(t, err)
	_, err = w.WritePage("index.html", []byte("two"))
	require.NoError(t, err)

	names, err := w.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html"}, names, "no temp files left behind")

	got, _ := os.ReadFile(filepath.Join(w.Root(), "index.html"))
	assert.Equal(t, "two", string(got))
}

func TestWritePage_TraversalBlocked(t *testing.T) {
	w := tempWriter(t)
	require.NoError(t, w.Reset())

	for _, name := range []string{"../escape.html", "/etc/passwd", "", "."} {
		_, err := w.WritePage(name, []byte("x"))
		assert.ErrorIs(t, err, apperr.ErrPathEscapesRoot, name)
	}
}

func TestSafePath_FilesystemRoot(t *testing.T) {
	w, err := NewWriter("/")
	require.NoError(t, err)

	got, err := w.safePath("index.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/", "index.html"), got)

	_, err = w.safePath("..")
	assert.ErrorIs(t, err, apperr.ErrPathEscapesRoot)
}

func TestList(t *testing.T) {
	w := tempWriter(t)
	require.NoError(t, w.Reset())
	_, _ = w.WritePage("index.html", []byte("i"))
	_, _ = w.WritePage("b.html", []byte("b"))

	names, err := w.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"index.html", "b.html"}, names)
}
