// Package realterm implements the Terminal port over golang.org/x/term.
package realterm

import (
	"golang.org/x/term"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// Terminal implements ports.Terminal against the process's real descriptors.
type Terminal struct{}

// New returns a new real Terminal.
func New() *Terminal {
	return &Terminal{}
}

// IsTerminal reports whether fd is attached to a terminal.
func (t *Terminal) IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// Size returns the terminal dimensions of fd in columns and rows.
func (t *Terminal) Size(fd int) (width, height int, err error) {
	return term.GetSize(fd)
}

// MakeRaw puts the terminal on fd into raw mode and returns a restore function.
func (t *Terminal) MakeRaw(fd int) (func() error, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error {
		return term.Restore(fd, state)
	}, nil
}

// Ensure Terminal implements ports.Terminal.
var _ ports.Terminal = (*Terminal)(nil)
