package ports

// Terminal abstracts terminal queries and raw mode for testing.
type Terminal interface {
	// IsTerminal reports whether fd is attached to a terminal.
	IsTerminal(fd int) bool

	// Size returns the terminal dimensions of fd in columns and rows.
	Size(fd int) (width, height int, err error)

	// MakeRaw puts the terminal on fd into raw mode and returns a function
	// that restores the previous state.
	MakeRaw(fd int) (restore func() error, err error)
}
