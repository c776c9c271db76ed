package system

import (
	"io/fs"
	"os"
	"path/filepath"
)

// VirtualFS is where local documents are read from. Names are absolute
// locators, not fs.ValidPath names, so implementations must accept rooted paths.
type VirtualFS interface {
	fs.FS
}

// WritableVirtualFS is a VirtualFS that bundles and joined documents can be written to.
type WritableVirtualFS interface {
	VirtualFS
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
}

type FileSystem struct{}

var (
	_ VirtualFS         = (*FileSystem)(nil)
	_ WritableVirtualFS = (*FileSystem)(nil)
)

func (fs *FileSystem) Open(name string) (fs.File, error) {
	return os.Open(name) //nolint:gosec
}

// WriteFile writes data to name, creating parent directories as needed.
func (fs *FileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, data, perm)
}

func (fs *FileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}
