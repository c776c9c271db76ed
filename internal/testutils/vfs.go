// Package testutils holds helpers shared by package tests.
package testutils

import (
	"io/fs"
	"path"
	"strings"
	"sync"
	"testing/fstest"

	"github.com/speakeasy-api/refbundle/system"
)

// MapFS is an in-memory system.VirtualFS keyed by absolute slash paths.
type MapFS struct {
	mu    sync.Mutex
	files fstest.MapFS
	opens map[string]int
}

var _ system.VirtualFS = (*MapFS)(nil)

// NewMapFS creates a MapFS from absolute path to content pairs.
func NewMapFS(files map[string]string) *MapFS {
	m := &MapFS{files: fstest.MapFS{}, opens: map[string]int{}}
	for name, content := range files {
		m.Add(name, content)
	}
	return m
}

// Add stores content under the absolute path name.
func (m *MapFS) Add(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[toFSPath(name)] = &fstest.MapFile{Data: []byte(content)}
}

func (m *MapFS) Open(name string) (fs.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens[path.Clean(name)]++
	return m.files.Open(toFSPath(name))
}

// Opens returns how many times name was opened.
func (m *MapFS) Opens(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[path.Clean(name)]
}

func toFSPath(name string) string {
	return strings.TrimPrefix(path.Clean(name), "/")
}
