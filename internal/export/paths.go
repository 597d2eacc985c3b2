package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Artifacts names the files of one output name inside a directory.
type Artifacts struct {
	Dir  string
	Name string
}

func (a Artifacts) path(ext string) string {
	return filepath.Join(a.Dir, a.Name+"."+ext)
}

func (a Artifacts) Script() string { return a.path("scad") }
func (a Artifacts) Metadata() string { return a.path("json") }
func (a Artifacts) Preview() string { return a.path("preview.png") }
func (a Artifacts) Mesh(format Format) string { return a.path(string(format)) }
func (a Artifacts) CodeImage() string { return a.path("png") }

// Temp returns a unique hidden path next to the artifacts, for files that
// are renamed into place once complete.
func (a Artifacts) Temp(ext string) string {
	return filepath.Join(a.Dir, "."+a.Name+"."+uuid.NewString()+"."+ext)
}

// writeAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// pathLocks serializes writers of the same output name.
type pathLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{m: make(map[string]*lockEntry)}
}

// lock blocks until key is free and returns the matching unlock.
func (l *pathLocks) lock(key string) func() {
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &lockEntry{}
		l.m[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}
