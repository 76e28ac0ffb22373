package ports

import (
	"io"
	"io/fs"
)

// FileSystem abstracts file operations for testing.
type FileSystem interface {
	// ReadFile reads the named file and returns its contents.
	ReadFile(name string) ([]byte, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm fs.FileMode) error

	// OpenFile opens the named file with the given flags and permissions.
	OpenFile(name string, flag int, perm fs.FileMode) (FileHandle, error)

	// Stat returns file info for the named file.
	Stat(name string) (fs.FileInfo, error)

	// Remove removes the named file or empty directory.
	Remove(name string) error

	// DirFS returns a read-only view of the tree rooted at dir.
	DirFS(dir string) fs.FS

	// UserHomeDir returns the current user's home directory.
	UserHomeDir() (string, error)

	// Getenv retrieves the value of the environment variable named by the key.
	Getenv(key string) string
}

// FileHandle is an open file owned by exactly one component.
type FileHandle interface {
	io.Writer
	io.Closer

	// Name returns the path the file was opened with.
	Name() string

	// Sync commits the current contents to stable storage.
	Sync() error
}
