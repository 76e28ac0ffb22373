// Package ui renders single-line status messages for the session wrapper.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// StatusSink receives non-fatal, user-facing status lines. The recording
// machinery reports through this instead of returning errors: a recording
// problem is worth at most one line, never a failed session.
type StatusSink interface {
	Warnf(format string, args ...any)
	Successf(format string, args ...any)
}

var (
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Console writes styled status lines to a terminal, plain lines otherwise.
type Console struct {
	out    io.Writer
	styled bool
}

// NewConsole returns a console sink on out, with color when out is a TTY.
func NewConsole(out *os.File) *Console {
	fd := out.Fd()
	return &Console{
		out:    out,
		styled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// Warnf prints a single warning line.
func (c *Console) Warnf(format string, args ...any) {
	line := "⚠ " + fmt.Sprintf(format, args...)
	if c.styled {
		line = warnStyle.Render(line)
	}
	fmt.Fprintln(c.out, line)
}

// Successf prints a single success line.
func (c *Console) Successf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if c.styled {
		line = successStyle.Render(line)
	}
	fmt.Fprintln(c.out, line)
}

// Discard drops every status line. Useful in tests and embedding callers
// that surface status their own way.
type Discard struct{}

func (Discard) Warnf(string, ...any)    {}
func (Discard) Successf(string, ...any) {}

var (
	_ StatusSink = (*Console)(nil)
	_ StatusSink = Discard{}
)
