// Package fakerand provides a deterministic Random for tests.
package fakerand

import (
	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// Random implements ports.Random by repeating a fixed byte pattern.
type Random struct {
	// Pattern is the byte sequence Read repeats. Defaults to 0xA1.
	Pattern []byte

	// Err, when set, is returned by Read.
	Err error
}

// New returns a Random that fills buffers with pattern.
func New(pattern ...byte) *Random {
	if len(pattern) == 0 {
		pattern = []byte{0xA1}
	}
	return &Random{Pattern: pattern}
}

// Read fills b by cycling through the pattern.
func (r *Random) Read(b []byte) (int, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	for i := range b {
		b[i] = r.Pattern[i%len(r.Pattern)]
	}
	return len(b), nil
}

// Ensure Random implements ports.Random.
var _ ports.Random = (*Random)(nil)
