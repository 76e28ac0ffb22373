// Package cast writes terminal session recordings in asciicast v2 format.
package cast

import "encoding/json"

// Event types emitted in a cast file.
// See: https://docs.asciinema.org/manual/asciicast/v2/
const (
	// EventOutput marks data written to the user's terminal.
	EventOutput = "o"

	// EventInput marks data typed by the user. The relay never emits it,
	// so credentials typed at remote prompts stay off disk.
	EventInput = "i"
)

// Header is the asciicast v2 header, extended with session attributes
// promoted to top-level keys (the format allows arbitrary extra fields).
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Env       map[string]string `json:"env"`
	Title     string            `json:"title"`
	AgentName *string           `json:"agent_name"`
	AgentID   *string           `json:"agent_id"`
	User      *string           `json:"user"`
	SessionID *string           `json:"session_id"`
}

// Event is an asciicast v2 event [time, type, data].
type Event struct {
	Time float64 `json:"-"`
	Type string  `json:"-"`
	Data string  `json:"-"`
}

// MarshalJSON renders the event as the 3-element array the format requires.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Time, e.Type, e.Data})
}

// Metadata holds free-form session attributes recorded in the header.
// All fields are optional; empty strings become JSON null.
type Metadata struct {
	AgentName string
	AgentID   string
	User      string
	SessionID string
	Shell     string
	Term      string
	Title     string
}

// nullable maps empty strings to JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
