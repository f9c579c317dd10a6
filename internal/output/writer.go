// Package output manages the directory rendered pages are materialized into.
package output

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/dainiki/internal/apperr"
	"github.com/starford/dainiki/internal/models"
)

// Writer owns the output directory.
type Writer struct {
	root string // absolute path to the output directory
}

// NewWriter creates a Writer rooted at dir. The directory does not need to
// exist until Reset is called.
func NewWriter(dir string) (*Writer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("output: resolve root: %w", err)
	}
	return &Writer{root: abs}, nil
}

// Root returns the absolute output directory.
func (w *Writer) Root() string { return w.root }

// Reset leaves the output directory existing and empty. A missing directory
// is created with its parents; an existing one has every entry removed.
func (w *Writer) Reset() error {
	info, err := os.Stat(w.root)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(w.root, 0o755); err != nil {
			return fmt.Errorf("output: create %s: %w", w.root, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("output: stat %s: %w", w.root, err)
	case !info.IsDir():
		return fmt.Errorf("output: %s is not a directory", w.root)
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("output: list %s: %w", w.root, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
			return fmt.Errorf("output: remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// safePath resolves a page name against the output root and rejects any
// result that escapes it.
func (w *Writer) safePath(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if name == "" || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("output: invalid page name %q: %w", name, apperr.ErrPathEscapesRoot)
	}
	abs := filepath.Join(w.root, cleaned)
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output: page name %q: %w", name, apperr.ErrPathEscapesRoot)
	}
	return abs, nil
}

// WritePage writes content to name under the output root, replacing any
// existing file: tmp file → fsync → rename.
func (w *Writer) WritePage(name string, content []byte) (models.PageRecord, error) {
	abs, err := w.safePath(name)
	if err != nil {
		return models.PageRecord{}, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.PageRecord{}, fmt.Errorf("output: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dainiki-tmp-*")
	if err != nil {
		return models.PageRecord{}, fmt.Errorf("output: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return models.PageRecord{}, fmt.Errorf("output: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return models.PageRecord{}, fmt.Errorf("output: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return models.PageRecord{}, fmt.Errorf("output: close temp: %w", err)
	}
	// CreateTemp uses 0600; published pages must be world-readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return models.PageRecord{}, fmt.Errorf("output: chmod: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return models.PageRecord{}, fmt.Errorf("output: rename: %w", err)
	}
	success = true

	return models.PageRecord{
		Name:     filepath.ToSlash(name),
		Checksum: checksum(content),
		Size:     int64(len(content)),
	}, nil
}

// List returns the slash-separated names of every file under the output root.
func (w *Writer) List() ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("output: list: %w", err)
	}
	return out, nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
