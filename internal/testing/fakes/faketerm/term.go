// Package faketerm provides a scriptable Terminal for tests.
package faketerm

import (
	"sync"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// Terminal implements ports.Terminal with fixed answers.
// The zero value behaves like a process with no controlling terminal.
type Terminal struct {
	// TTY makes IsTerminal report true for every descriptor.
	TTY bool

	// Width and Height are returned by Size when SizeErr is nil.
	Width, Height int

	// SizeErr, when set, is returned by Size.
	SizeErr error

	// RawErr, when set, makes MakeRaw fail.
	RawErr error

	mu       sync.Mutex
	rawCalls int
	restored int
}

// IsTerminal reports the configured TTY flag regardless of fd.
func (t *Terminal) IsTerminal(fd int) bool {
	return t.TTY
}

// Size returns the configured dimensions.
func (t *Terminal) Size(fd int) (int, int, error) {
	if t.SizeErr != nil {
		return 0, 0, t.SizeErr
	}
	return t.Width, t.Height, nil
}

// MakeRaw records the call and returns a restore function that counts
// invocations.
func (t *Terminal) MakeRaw(fd int) (func() error, error) {
	if t.RawErr != nil {
		return nil, t.RawErr
	}
	t.mu.Lock()
	t.rawCalls++
	t.mu.Unlock()
	return func() error {
		t.mu.Lock()
		t.restored++
		t.mu.Unlock()
		return nil
	}, nil
}

// RawCalls returns how many times raw mode was entered.
func (t *Terminal) RawCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rawCalls
}

// Restored returns how many times the restore function ran.
func (t *Terminal) Restored() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restored
}

// Ensure Terminal implements ports.Terminal.
var _ ports.Terminal = (*Terminal)(nil)
