// Package session orchestrates recorded remote-shell sessions.
//
// Recording is strictly additive: every failure inside the recording path
// degrades to the next-simplest execution mode (opt-out, writer failure,
// PTY failure) instead of breaking the user's session.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/praetorian-inc/aegis-recorder/internal/adapters/realclock"
	"github.com/praetorian-inc/aegis-recorder/internal/adapters/realfs"
	"github.com/praetorian-inc/aegis-recorder/internal/adapters/realrand"
	"github.com/praetorian-inc/aegis-recorder/internal/adapters/realterm"
	"github.com/praetorian-inc/aegis-recorder/internal/cast"
	"github.com/praetorian-inc/aegis-recorder/internal/ports"
	"github.com/praetorian-inc/aegis-recorder/internal/ptymux"
	"github.com/praetorian-inc/aegis-recorder/internal/termsize"
	"github.com/praetorian-inc/aegis-recorder/internal/ui"
)

// EnvNoRecord disables recording for the session when set to any value.
const EnvNoRecord = "PRAETORIAN_NO_RECORD"

// muxer is the subset of ptymux.Mux the orchestrator drives. Tests inject
// failing implementations to exercise the fallback tiers.
type muxer interface {
	Spawn() error
	Relay(sink ptymux.OutputSink) error
	WatchResize() (stop func())
	Wait() int
	Close() error
}

// muxFactory builds the multiplexer for a spawn attempt.
type muxFactory func(command []string, width, height int, term ports.Terminal) muxer

// Session runs one command under recording. Ephemeral: one per invocation,
// nothing persists across runs except the cast file.
type Session struct {
	command       []string
	meta          cast.Metadata
	recordingPath string
	root          string
	disabled      bool

	fs     ports.FileSystem
	clock  ports.Clock
	rand   ports.Random
	term   ports.Terminal
	status ui.StatusSink

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newMux muxFactory
}

// Option adjusts a Session at construction time.
type Option func(*Session)

// WithFileSystem replaces the filesystem port.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(s *Session) { s.fs = fs }
}

// WithClock replaces the clock port.
func WithClock(c ports.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithRandom replaces the randomness source for path suffixes.
func WithRandom(r ports.Random) Option {
	return func(s *Session) { s.rand = r }
}

// WithTerminal replaces the terminal port.
func WithTerminal(t ports.Terminal) Option {
	return func(s *Session) { s.term = t }
}

// WithStatus replaces the status sink.
func WithStatus(sink ui.StatusSink) Option {
	return func(s *Session) { s.status = sink }
}

// WithRecordingRoot overrides the recordings root directory
// (default ~/.praetorian/recordings).
func WithRecordingRoot(dir string) Option {
	return func(s *Session) { s.root = dir }
}

// WithStdio replaces the stdio endpoints used for the relay and for direct
// execution.
func WithStdio(in io.Reader, out, errOut io.Writer) Option {
	return func(s *Session) {
		s.stdin = in
		s.stdout = out
		s.stderr = errOut
	}
}

// Disabled forces unrecorded execution, equivalent to EnvNoRecord.
func Disabled(d bool) Option {
	return func(s *Session) { s.disabled = d }
}

// withMuxFactory lets tests substitute the multiplexer.
func withMuxFactory(f muxFactory) Option {
	return func(s *Session) { s.newMux = f }
}

// New builds a session for command. The recording path is computed once,
// here, and never changes:
//
//	<root>/<YYYY-MM-DD>/<agent>_<YYYYMMDD-HHMMSS>_<6 hex>.cast
//
// The random suffix avoids collisions; it does not make them impossible.
// A missing SessionID is filled with a fresh UUID so every cast header
// carries one.
func New(command []string, meta cast.Metadata, opts ...Option) *Session {
	s := &Session{
		command: command,
		meta:    meta,
		fs:      realfs.New(),
		clock:   realclock.New(),
		rand:    realrand.New(),
		term:    realterm.New(),
		status:  ui.NewConsole(os.Stderr),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newMux == nil {
		s.newMux = func(command []string, width, height int, term ports.Terminal) muxer {
			return ptymux.New(command, width, height, term, ptymux.WithStdio(s.stdin, s.stdout))
		}
	}
	if s.meta.SessionID == "" {
		s.meta.SessionID = uuid.NewString()
	}
	s.recordingPath = s.generatePath()
	return s
}

// RecordingPath returns the cast file path this session will write to.
func (s *Session) RecordingPath() string {
	return s.recordingPath
}

func (s *Session) generatePath() string {
	root := s.root
	if root == "" {
		home, err := s.fs.UserHomeDir()
		if err != nil {
			home = "."
		}
		root = filepath.Join(home, ".praetorian", "recordings")
	}

	suffix := make([]byte, 3)
	if _, err := s.rand.Read(suffix); err != nil {
		// Degraded but unique enough together with the timestamp.
		copy(suffix, []byte{0, 0, 0})
	}

	agent := s.meta.AgentName
	if agent == "" {
		agent = "unknown"
	}

	now := s.clock.Now()
	name := fmt.Sprintf("%s_%s_%s.cast", agent, now.Format("20060102-150405"), hex.EncodeToString(suffix))
	return filepath.Join(root, now.Format("2006-01-02"), name)
}

// Run executes the session and returns the subprocess exit code. The code
// is the child's own on every path, recorded or not, so callers cannot
// distinguish recording mode from it. The error is non-nil only when the
// command itself cannot be launched.
func (s *Session) Run() (int, error) {
	if len(s.command) == 0 {
		return 1, errors.New("session: empty command")
	}

	if s.disabled || s.fs.Getenv(EnvNoRecord) != "" {
		return s.runDirect()
	}

	width, height := termsize.Resolve(s.term)

	writer := cast.NewWriter(s.recordingPath, width, height, s.meta, s.fs, s.clock)
	if !writer.Start() {
		s.status.Warnf("Failed to start session recording, continuing without it")
		return s.runDirect()
	}
	defer writer.Close()

	mux := s.newMux(s.command, width, height, s.term)
	defer mux.Close()

	if err := mux.Spawn(); err != nil {
		s.status.Warnf("PTY allocation failed, recording disabled: %v", err)
		return s.runDirect()
	}

	stopResize := mux.WatchResize()
	defer stopResize()

	mux.Relay(writer)
	code := mux.Wait()

	s.status.Successf("\nSession recorded to %s", s.recordingPath)
	return code, nil
}
