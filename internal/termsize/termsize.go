// Package termsize resolves the dimensions of the controlling terminal.
package termsize

import (
	"os"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// Defaults used when no controlling terminal is available, e.g. in CI or
// when stdio is piped.
const (
	DefaultWidth  = 80
	DefaultHeight = 24
)

// Resolve returns the current terminal size in columns and rows.
// It probes stdout, stdin and stderr in that order and falls back to
// (80, 24) when none of them is a terminal. It never fails.
func Resolve(t ports.Terminal) (width, height int) {
	for _, f := range []*os.File{os.Stdout, os.Stdin, os.Stderr} {
		fd := int(f.Fd())
		if !t.IsTerminal(fd) {
			continue
		}
		w, h, err := t.Size(fd)
		if err != nil || w <= 0 || h <= 0 {
			continue
		}
		return w, h
	}
	return DefaultWidth, DefaultHeight
}
