package cast

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// closeTimeout bounds how long Close waits for the drain goroutine.
// Bounded shutdown latency wins over guaranteed zero data loss.
const closeTimeout = 2 * time.Second

// Writer persists a cast file without ever blocking its caller. Events are
// queued and written by a single background goroutine, so disk latency is
// invisible to the PTY relay. A Writer is single-use: New, Start, events,
// Close.
type Writer struct {
	path   string
	header Header
	fs     ports.FileSystem
	clock  ports.Clock

	file      ports.FileHandle
	startTime time.Time
	started   bool

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	closing bool
	done    chan struct{}
}

// NewWriter builds a writer for path. Nothing touches the filesystem until
// Start. Env hints fall back to the process environment when the metadata
// leaves them empty.
func NewWriter(path string, width, height int, meta Metadata, fs ports.FileSystem, clock ports.Clock) *Writer {
	now := clock.Now()

	shell := meta.Shell
	if shell == "" {
		shell = fs.Getenv("SHELL")
	}
	termType := meta.Term
	if termType == "" {
		termType = fs.Getenv("TERM")
	}
	if termType == "" {
		termType = "xterm-256color"
	}

	w := &Writer{
		path:  path,
		fs:    fs,
		clock: clock,
		header: Header{
			Version:   2,
			Width:     width,
			Height:    height,
			Timestamp: now.Unix(),
			Env: map[string]string{
				"SHELL": shell,
				"TERM":  termType,
			},
			Title:     meta.Title,
			AgentName: nullable(meta.AgentName),
			AgentID:   nullable(meta.AgentID),
			User:      nullable(meta.User),
			SessionID: nullable(meta.SessionID),
		},
		startTime: now,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Start creates the recording file, writes the header line and launches the
// drain goroutine. It returns false on any I/O error; the caller is expected
// to continue the session unrecorded. After a false return no other method
// has an effect.
func (w *Writer) Start() bool {
	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		slog.Debug("recording dir create failed", slog.String("error", err.Error()))
		return false
	}

	file, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		slog.Debug("recording file create failed", slog.String("error", err.Error()))
		return false
	}

	line, err := json.Marshal(w.header)
	if err == nil {
		_, err = file.Write(append(line, '\n'))
	}
	if err != nil {
		// A header-less cast is worse than no cast: remove the stub so the
		// file is either complete-from-line-0 or absent.
		file.Close()
		w.fs.Remove(w.path)
		slog.Debug("recording header write failed", slog.String("error", err.Error()))
		return false
	}
	file.Sync()

	w.file = file
	w.done = make(chan struct{})
	w.started = true
	go w.drain()
	return true
}

// WriteEvent timestamps data relative to session start and enqueues it for
// the drain goroutine. Invalid UTF-8 is replaced, never rejected. Calls
// before a successful Start, or after Close, are silent no-ops.
func (w *Writer) WriteEvent(eventType string, data []byte) {
	if !w.started {
		return
	}

	ev := Event{
		Time: w.clock.Now().Sub(w.startTime).Seconds(),
		Type: eventType,
		Data: strings.ToValidUTF8(string(data), "�"),
	}

	w.mu.Lock()
	if !w.closing {
		w.queue = append(w.queue, ev)
		w.cond.Signal()
	}
	w.mu.Unlock()
}

// Record enqueues subprocess output as an "o" event.
func (w *Writer) Record(data []byte) {
	w.WriteEvent(EventOutput, data)
}

// drain writes queued events one JSON line at a time, strictly in enqueue
// order. A failed write drops that event only. It exits once Close has been
// called and the queue is empty.
func (w *Writer) drain() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closing {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			break
		}
		ev := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		line, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := w.file.Write(append(line, '\n')); err != nil {
			continue
		}
	}
	close(w.done)
}

// Close stops accepting events, waits up to closeTimeout for the drain
// goroutine to finish, then closes the file. All errors are swallowed: the
// session is already over and the user cannot act on a failed flush.
func (w *Writer) Close() {
	if !w.started {
		return
	}

	w.mu.Lock()
	alreadyClosing := w.closing
	w.closing = true
	w.cond.Broadcast()
	w.mu.Unlock()

	if !alreadyClosing {
		select {
		case <-w.done:
		case <-w.clock.After(closeTimeout):
			slog.Debug("recording drain timed out", slog.String("path", w.path))
		}
		w.file.Close()
	}
}

// Path returns the recording file path.
func (w *Writer) Path() string {
	return w.path
}
