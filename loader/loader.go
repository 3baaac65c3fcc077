// Package loader implements C5: resolving [Import] statements to source
// text, for both plain .chtl files and archive-packed .cmod/.cjmod
// modules, with import-cycle detection (spec.md §4.3, §6).
package loader

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Loader resolves an import path to its raw source text. Concrete
// implementations may read the filesystem, a zip archive, or (in
// tests) an in-memory map.
type Loader interface {
	Load(path string) (string, error)
}

// FSLoader resolves import paths relative to a root directory on the
// local filesystem, the default loader the CLI wires in (spec.md §6).
type FSLoader struct {
	Root string
}

func (f *FSLoader) Load(path string) (string, error) {
	full := filepath.Join(f.Root, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("load %q: %w", path, err)
	}
	return string(data), nil
}

// ArchiveLoader resolves import paths against entries inside a zip-
// format .cmod/.cjmod bundle (spec.md §6's Archive format).
type ArchiveLoader struct {
	reader *zip.ReadCloser
}

// OpenArchive opens a .cmod/.cjmod file for reading. Callers must
// Close() the returned loader when done.
func OpenArchive(archivePath string) (*ArchiveLoader, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", archivePath, err)
	}
	return &ArchiveLoader{reader: r}, nil
}

func (a *ArchiveLoader) Load(path string) (string, error) {
	for _, f := range a.reader.File {
		if f.Name == path {
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("open archive entry %q: %w", path, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return "", fmt.Errorf("read archive entry %q: %w", path, err)
			}
			return string(data), nil
		}
	}
	return "", fmt.Errorf("archive entry %q not found", path)
}

func (a *ArchiveLoader) Close() error {
	return a.reader.Close()
}

// MapLoader resolves import paths from an in-memory map, used by tests.
type MapLoader map[string]string

func (m MapLoader) Load(path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", fmt.Errorf("no such import %q", path)
	}
	return src, nil
}

// CycleGuard tracks the active import stack for one compilation,
// rejecting a re-entrant import of a path already being resolved
// (spec.md §4.3/§7's import-cycle requirement).
type CycleGuard struct {
	active map[string]bool
	stack  []string
}

func NewCycleGuard() *CycleGuard {
	return &CycleGuard{active: make(map[string]bool)}
}

// Enter pushes path onto the active stack, returning an error if it's
// already being resolved (a cycle). Callers must call Leave when
// finished, typically via defer.
func (g *CycleGuard) Enter(path string) error {
	if g.active[path] {
		return fmt.Errorf("import cycle detected: %v -> %s", g.stack, path)
	}
	g.active[path] = true
	g.stack = append(g.stack, path)
	return nil
}

func (g *CycleGuard) Leave(path string) {
	delete(g.active, path)
	if n := len(g.stack); n > 0 && g.stack[n-1] == path {
		g.stack = g.stack[:n-1]
	}
}
