package cast

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/praetorian-inc/aegis-recorder/internal/testing/fakes/fakeclock"
	"github.com/praetorian-inc/aegis-recorder/internal/testing/fakes/fakefs"
)

var epoch = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newTestWriter(t *testing.T, fs *fakefs.FS, clock *fakeclock.Clock) *Writer {
	t.Helper()
	path := filepath.Join("/home/aegis", ".praetorian", "recordings", "2026-08-31", "demo.cast")
	return NewWriter(path, 80, 24, Metadata{AgentName: "demo", Shell: "/bin/bash", Term: "xterm"}, fs, clock)
}

// lines splits the cast file into its JSON lines.
func lines(t *testing.T, fs *fakefs.FS, path string) []string {
	t.Helper()
	data, ok := fs.Contents(path)
	if !ok {
		t.Fatalf("recording file %s does not exist", path)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// ---------- Event tests ----------

func TestEventMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		expected string
	}{
		{
			name:     "output event",
			event:    Event{Time: 1.5, Type: "o", Data: "hello"},
			expected: `[1.5,"o","hello"]`,
		},
		{
			name:     "input event",
			event:    Event{Time: 0.0, Type: "i", Data: "ls\r\n"},
			expected: `[0,"i","ls\r\n"]`,
		},
		{
			name:     "unicode data",
			event:    Event{Time: 0.5, Type: "o", Data: "Hello, 世界!"},
			expected: `[0.5,"o","Hello, 世界!"]`,
		},
		{
			name:     "json special chars in data",
			event:    Event{Time: 1.0, Type: "o", Data: `"quoted" and \backslash`},
			expected: `[1,"o","\"quoted\" and \\backslash"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("MarshalJSON() = %s, want %s", string(got), tt.expected)
			}
		})
	}
}

// ---------- Header tests ----------

func TestHeaderNullableMetadata(t *testing.T) {
	h := Header{
		Version:   2,
		Width:     80,
		Height:    24,
		Timestamp: epoch.Unix(),
		Env:       map[string]string{"SHELL": "/bin/bash", "TERM": "xterm"},
		AgentName: nullable("demo"),
		AgentID:   nullable(""),
	}

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal header: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal header: %v", err)
	}

	if parsed["agent_name"] != "demo" {
		t.Errorf("agent_name = %v, want demo", parsed["agent_name"])
	}
	if v, ok := parsed["agent_id"]; !ok || v != nil {
		t.Errorf("agent_id = %v (present=%v), want explicit null", v, ok)
	}
	if v, ok := parsed["user"]; !ok || v != nil {
		t.Errorf("user = %v (present=%v), want explicit null", v, ok)
	}
}

// ---------- Writer tests ----------

func TestWriterHeaderBeforeEvents(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	if !w.Start() {
		t.Fatal("Start() = false, want true")
	}
	w.WriteEvent(EventOutput, []byte("one"))
	w.WriteEvent(EventOutput, []byte("two"))
	w.Close()

	got := lines(t, fs, w.Path())
	if len(got) != 3 {
		t.Fatalf("line count = %d, want 3", len(got))
	}

	var header Header
	if err := json.Unmarshal([]byte(got[0]), &header); err != nil {
		t.Fatalf("first line is not a valid header: %v", err)
	}
	if header.Version != 2 {
		t.Errorf("header version = %d, want 2", header.Version)
	}
	if header.Width != 80 || header.Height != 24 {
		t.Errorf("header size = %dx%d, want 80x24", header.Width, header.Height)
	}
	if header.Timestamp != epoch.Unix() {
		t.Errorf("header timestamp = %d, want %d", header.Timestamp, epoch.Unix())
	}

	for i, line := range got[1:] {
		var ev []any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("event line %d is not valid JSON: %v", i+1, err)
		}
		if len(ev) != 3 {
			t.Errorf("event line %d has %d elements, want 3", i+1, len(ev))
		}
	}
}

func TestWriterOrderPreservation(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	if !w.Start() {
		t.Fatal("Start() = false, want true")
	}

	payloads := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for _, p := range payloads {
		w.WriteEvent(EventOutput, []byte(p))
		clock.Advance(10 * time.Millisecond)
	}
	w.Close()

	got := lines(t, fs, w.Path())
	if len(got) != len(payloads)+1 {
		t.Fatalf("line count = %d, want %d", len(got), len(payloads)+1)
	}

	lastTime := -1.0
	for i, p := range payloads {
		var ev []any
		if err := json.Unmarshal([]byte(got[i+1]), &ev); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev[1] != "o" {
			t.Errorf("event %d type = %v, want o", i, ev[1])
		}
		if ev[2] != p {
			t.Errorf("event %d data = %v, want %v", i, ev[2], p)
		}
		ts := ev[0].(float64)
		if ts < lastTime {
			t.Errorf("event %d time = %v, decreased from %v", i, ts, lastTime)
		}
		lastTime = ts
	}
}

func TestWriterInvalidUTF8(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	if !w.Start() {
		t.Fatal("Start() = false, want true")
	}
	w.WriteEvent(EventOutput, []byte{0xff, 0xfe, 0x00, 0x00})
	w.Close()

	got := lines(t, fs, w.Path())
	if len(got) != 2 {
		t.Fatalf("line count = %d, want 2", len(got))
	}

	var ev []any
	if err := json.Unmarshal([]byte(got[1]), &ev); err != nil {
		t.Fatalf("event line: %v", err)
	}
	text, ok := ev[2].(string)
	if !ok {
		t.Fatalf("event data is %T, want string", ev[2])
	}
	if !utf8.ValidString(text) {
		t.Errorf("event data %q is not valid UTF-8", text)
	}
	if !strings.ContainsRune(text, '�') {
		t.Errorf("event data %q has no replacement character", text)
	}
}

func TestWriterEventTimeOffset(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	if !w.Start() {
		t.Fatal("Start() = false, want true")
	}
	clock.Advance(1500 * time.Millisecond)
	w.WriteEvent(EventOutput, []byte("x"))
	w.Close()

	got := lines(t, fs, w.Path())
	var ev []any
	if err := json.Unmarshal([]byte(got[1]), &ev); err != nil {
		t.Fatalf("event line: %v", err)
	}
	if ev[0].(float64) != 1.5 {
		t.Errorf("event time = %v, want 1.5", ev[0])
	}
}

func TestWriterNoStartIsNoOp(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	w.WriteEvent(EventOutput, []byte("dropped"))
	w.Close()

	if fs.Exists(w.Path()) {
		t.Errorf("recording file created without Start")
	}
}

func TestWriterStartFailure(t *testing.T) {
	tests := []struct {
		name   string
		inject func(*fakefs.FS)
	}{
		{"open fails", func(f *fakefs.FS) { f.OpenErr = errPermission }},
		{"mkdir fails", func(f *fakefs.FS) { f.MkdirErr = errPermission }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := fakefs.New()
			tt.inject(fs)
			clock := fakeclock.New(epoch)
			w := newTestWriter(t, fs, clock)

			if w.Start() {
				t.Fatal("Start() = true, want false")
			}
			// All further operations must be silent no-ops.
			w.WriteEvent(EventOutput, []byte("dropped"))
			w.Close()

			if fs.Exists(w.Path()) {
				t.Errorf("recording file exists after failed Start")
			}
		})
	}
}

func TestWriterExclusiveCreate(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	fs.WriteFile(w.Path(), []byte("earlier recording\n"), epoch)

	if w.Start() {
		t.Fatal("Start() = true, want false for an existing path")
	}
	data, _ := fs.Contents(w.Path())
	if string(data) != "earlier recording\n" {
		t.Errorf("existing recording was clobbered: %q", data)
	}
}

func TestWriterDropsSingleFailedWrite(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	// Write 1 is the header; fail write 2 (the first event) only.
	fs.FailWriteAt = 2

	if !w.Start() {
		t.Fatal("Start() = false, want true")
	}
	w.WriteEvent(EventOutput, []byte("lost"))
	w.WriteEvent(EventOutput, []byte("kept"))
	w.Close()

	got := lines(t, fs, w.Path())
	if len(got) != 2 {
		t.Fatalf("line count = %d, want 2 (header + surviving event)", len(got))
	}
	if !strings.Contains(got[1], "kept") {
		t.Errorf("surviving event = %q, want the one after the failed write", got[1])
	}
}

func TestWriterCloseIdempotent(t *testing.T) {
	fs := fakefs.New()
	clock := fakeclock.New(epoch)
	w := newTestWriter(t, fs, clock)

	if !w.Start() {
		t.Fatal("Start() = false, want true")
	}
	w.Close()
	w.Close()

	if got := lines(t, fs, w.Path()); len(got) != 1 {
		t.Errorf("line count = %d, want 1", len(got))
	}
}

func TestWriterEnvFallsBackToProcessEnv(t *testing.T) {
	fs := fakefs.New()
	fs.Setenv("SHELL", "/bin/zsh")
	fs.Setenv("TERM", "screen-256color")
	clock := fakeclock.New(epoch)

	w := NewWriter("/home/aegis/r.cast", 80, 24, Metadata{}, fs, clock)

	if w.header.Env["SHELL"] != "/bin/zsh" {
		t.Errorf("SHELL = %q, want /bin/zsh", w.header.Env["SHELL"])
	}
	if w.header.Env["TERM"] != "screen-256color" {
		t.Errorf("TERM = %q, want screen-256color", w.header.Env["TERM"])
	}
}

var errPermission = &permissionError{}

type permissionError struct{}

func (*permissionError) Error() string { return "permission denied" }
