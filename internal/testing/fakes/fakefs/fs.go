// Package fakefs provides an in-memory FileSystem for tests.
package fakefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing/fstest"
	"time"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// FS implements ports.FileSystem in memory with error injection hooks.
type FS struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string]*file
	env   map[string]string
	home  string

	// MkdirErr, when set, is returned by MkdirAll.
	MkdirErr error

	// OpenErr, when set, is returned by OpenFile.
	OpenErr error

	// FailWriteAt makes the n-th handle Write call (1-based, counted across
	// all handles) fail. Zero disables the hook.
	FailWriteAt int

	writeCalls int
}

type file struct {
	data    []byte
	mode    fs.FileMode
	modTime time.Time
}

// New returns an empty fake filesystem with home directory /home/aegis.
func New() *FS {
	return &FS{
		dirs:  map[string]bool{"/": true},
		files: map[string]*file{},
		env:   map[string]string{},
		home:  "/home/aegis",
	}
}

// ReadFile returns the contents of name.
func (f *FS) ReadFile(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), fl.data...), nil
}

// MkdirAll creates path and all parents.
func (f *FS) MkdirAll(path string, perm fs.FileMode) error {
	if f.MkdirErr != nil {
		return f.MkdirErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := filepath.Clean(path); p != "/" && p != "."; p = filepath.Dir(p) {
		f.dirs[p] = true
	}
	return nil
}

// OpenFile opens name, honoring O_CREATE and O_EXCL. The parent directory
// must already exist, which keeps callers honest about MkdirAll.
func (f *FS) OpenFile(name string, flag int, perm fs.FileMode) (ports.FileHandle, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	_, exists := f.files[name]
	if exists && flag&os.O_EXCL != 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrExist}
	}
	if !exists {
		if flag&os.O_CREATE == 0 {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		if !f.dirs[filepath.Dir(name)] {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		f.files[name] = &file{mode: perm, modTime: time.Now()}
	}
	return &handle{fs: f, name: name}, nil
}

// Stat returns info for a file or directory.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.files[name]; ok {
		return fileInfo{name: filepath.Base(name), size: int64(len(fl.data)), mode: fl.mode, modTime: fl.modTime}, nil
	}
	if f.dirs[filepath.Clean(name)] {
		return fileInfo{name: filepath.Base(name), mode: fs.ModeDir | 0o700, dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// Remove deletes a file.
func (f *FS) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(f.files, name)
	return nil
}

// DirFS returns a snapshot of the tree under dir as an fs.FS.
func (f *FS) DirFS(dir string) fs.FS {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := filepath.Clean(dir) + "/"
	m := fstest.MapFS{}
	for name, fl := range f.files {
		if strings.HasPrefix(name, prefix) {
			m[strings.TrimPrefix(name, prefix)] = &fstest.MapFile{
				Data:    append([]byte(nil), fl.data...),
				Mode:    fl.mode,
				ModTime: fl.modTime,
			}
		}
	}
	return m
}

// UserHomeDir returns the fake home directory.
func (f *FS) UserHomeDir() (string, error) {
	return f.home, nil
}

// Getenv returns a value set with Setenv.
func (f *FS) Getenv(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.env[key]
}

// Setenv sets an environment variable visible through Getenv.
func (f *FS) Setenv(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.env[key] = value
}

// WriteFile creates a file directly, creating parents as needed.
func (f *FS) WriteFile(name string, data []byte, modTime time.Time) {
	f.MkdirAll(filepath.Dir(name), 0o700)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = &file{data: append([]byte(nil), data...), mode: 0o600, modTime: modTime}
}

// Contents returns the current bytes of name.
func (f *FS) Contents(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), fl.data...), true
}

// Exists reports whether name is a file.
func (f *FS) Exists(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	return ok
}

// handle is an open fake file.
type handle struct {
	fs     *FS
	name   string
	closed bool
}

func (h *handle) Write(p []byte) (int, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	if h.closed {
		return 0, fs.ErrClosed
	}
	h.fs.writeCalls++
	if h.fs.FailWriteAt > 0 && h.fs.writeCalls == h.fs.FailWriteAt {
		return 0, errors.New("no space left on device")
	}
	fl, ok := h.fs.files[h.name]
	if !ok {
		return 0, fs.ErrNotExist
	}
	fl.data = append(fl.data, p...)
	fl.modTime = time.Now()
	return len(p), nil
}

func (h *handle) Close() error {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	if h.closed {
		return fs.ErrClosed
	}
	h.closed = true
	return nil
}

func (h *handle) Name() string { return h.name }

func (h *handle) Sync() error { return nil }

// fileInfo is a minimal fs.FileInfo.
type fileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	dir     bool
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) Mode() fs.FileMode  { return i.mode }
func (i fileInfo) ModTime() time.Time { return i.modTime }
func (i fileInfo) IsDir() bool        { return i.dir }
func (i fileInfo) Sys() any           { return nil }

// Ensure FS implements ports.FileSystem.
var _ ports.FileSystem = (*FS)(nil)
