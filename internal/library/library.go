// Package library manages the on-disk collection of cast files.
package library

import (
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// DefaultPattern matches every recording under the root, one date
// directory deep or anywhere else.
const DefaultPattern = "**/*.cast"

// List returns recording paths under fsys matching pattern, newest first.
// Date directories and timestamped names make reverse-lexical order
// chronological.
func List(fsys iofs.FS, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob recordings: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// Prune removes recordings under root whose modification time is older
// than the retention window and returns their paths. Entries that cannot
// be inspected or removed are skipped, not fatal.
func Prune(fs ports.FileSystem, clock ports.Clock, root string, olderThan time.Duration) ([]string, error) {
	names, err := List(fs.DirFS(root), DefaultPattern)
	if err != nil {
		return nil, err
	}

	cutoff := clock.Now().Add(-olderThan)
	var deleted []string
	for _, name := range names {
		full := filepath.Join(root, name)
		info, err := fs.Stat(full)
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := fs.Remove(full); err != nil {
			continue
		}
		deleted = append(deleted, full)
	}
	return deleted, nil
}
