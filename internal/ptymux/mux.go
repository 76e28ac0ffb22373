// Package ptymux runs a command on a pseudo-terminal and relays bytes
// between it and the user's real terminal.
package ptymux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// chunkSize is the per-read buffer size in both relay directions.
const chunkSize = 4096

// OutputSink observes subprocess output as it is relayed to the user.
// Chunks arrive in read order; implementations must enqueue rather than
// flush, since the relay loop is the interactive hot path.
type OutputSink interface {
	Record(data []byte)
}

// Mux owns one PTY master and one subprocess. It is single-use: construct,
// Spawn, WatchResize, Relay, Wait, Close.
type Mux struct {
	command []string
	width   int
	height  int
	term    ports.Terminal

	stdin  io.Reader
	stdout io.Writer
	tty    *os.File // descriptor used for raw mode and resize inheritance

	cmd  *exec.Cmd
	ptmx *os.File

	closeOnce sync.Once
}

// Option adjusts a Mux.
type Option func(*Mux)

// WithStdio replaces the relay endpoints, primarily for tests.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(m *Mux) {
		m.stdin = in
		m.stdout = out
	}
}

// New builds a multiplexer for command at the given initial size.
func New(command []string, width, height int, term ports.Terminal, opts ...Option) *Mux {
	m := &Mux{
		command: command,
		width:   width,
		height:  height,
		term:    term,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		tty:     os.Stdin,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Spawn allocates the PTY pair and starts the command attached to the slave
// side. The subprocess becomes a session leader with the slave as its
// controlling terminal, so interrupts typed by the user reach it through
// normal process-group delivery. Only the subprocess keeps the slave open.
// A non-nil error is fatal to PTY mode; the caller decides the fallback.
func (m *Mux) Spawn() error {
	if m.ptmx != nil {
		return errors.New("pty: already spawned")
	}
	if len(m.command) == 0 {
		return errors.New("pty: empty command")
	}

	cmd := exec.Command(m.command[0], m.command[1:]...)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(m.width),
		Rows: uint16(m.height),
	})
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}

	m.cmd = cmd
	m.ptmx = ptmx
	return nil
}

// Relay copies bytes between the real terminal and the PTY master until the
// subprocess side closes. Output chunks go to stdout verbatim and, when a
// sink is given, to the sink in the same order and chunking. If stdin is a
// real terminal it is put into raw mode for the duration and restored on
// every exit path.
func (m *Mux) Relay(sink OutputSink) error {
	if m.ptmx == nil {
		return errors.New("pty: relay before spawn")
	}

	fd := int(m.tty.Fd())
	var restore func() error
	if m.term.IsTerminal(fd) {
		if r, err := m.term.MakeRaw(fd); err == nil {
			restore = r
		}
		// On error: keep whatever mode stdin already has.
	}
	defer func() {
		if restore != nil {
			restore()
		}
	}()

	// stdin -> master. A read left pending here after the session would
	// swallow the first bytes the user types next, so the loop is cancelled
	// through releaseStdin once the master side closes.
	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		buf := make([]byte, chunkSize)
		for {
			n, err := m.stdin.Read(buf)
			if n > 0 {
				if _, werr := m.ptmx.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// master -> stdout + sink. The sink call is synchronous before the next
	// read, so chunk order on the sink matches read order exactly.
	buf := make([]byte, chunkSize)
	for {
		n, err := m.ptmx.Read(buf)
		if n > 0 {
			m.stdout.Write(buf[:n])
			if sink != nil {
				sink.Record(buf[:n])
			}
		}
		if err != nil {
			// EIO: the subprocess exited and released the slave.
			break
		}
	}

	m.releaseStdin(stdinDone)
	return nil
}

// releaseStdin interrupts the stdin forwarder's pending read so no bytes
// typed after the session are consumed. Only *os.File readers support
// deadline cancellation; anything else ends on EOF or a failed master
// write.
func (m *Mux) releaseStdin(done <-chan struct{}) {
	f, ok := m.stdin.(*os.File)
	if !ok {
		return
	}
	if err := f.SetReadDeadline(time.Now()); err != nil {
		return
	}
	<-done
	f.SetReadDeadline(time.Time{})
}

// WatchResize forwards the real terminal's size to the PTY master on every
// SIGWINCH, and once immediately so the subprocess starts with the live
// size. Propagation failures are ignored. The returned stop function
// unregisters the handler.
func (m *Mux) WatchResize() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	go func() {
		for range ch {
			_ = pty.InheritSize(m.tty, m.ptmx)
		}
	}()
	ch <- syscall.SIGWINCH
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}

// Wait blocks until the subprocess exits and returns its exit code.
// Signal deaths map to the conventional 128+n.
func (m *Mux) Wait() int {
	err := m.cmd.Wait()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

// Close releases the PTY master. Safe to call on any path, at most once
// effective.
func (m *Mux) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.ptmx != nil {
			err = m.ptmx.Close()
		}
	})
	return err
}
