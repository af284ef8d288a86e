// Package control defines the daemon's local control protocol.
//
// CLI sub-commands talk to the running daemon over the IPC socket with
// newline-delimited JSON messages: each message is exactly one line,
// <json>\n.
package control

import (
	"encoding/json"
	"fmt"

	"go.klb.dev/clipstash/internal/entry"
)

// Type identifies the kind of message.
type Type string

const (
	// Requests
	TypeList   Type = "LIST"
	TypePaste  Type = "PASTE"
	TypePin    Type = "PIN"
	TypeDelete Type = "DELETE"
	TypeClear  Type = "CLEAR"
	TypeStatus Type = "STATUS"

	// Responses
	TypeEntries        Type = "ENTRIES"
	TypeOK             Type = "OK"
	TypeStatusResponse Type = "STATUS_RESPONSE"
	TypeError          Type = "ERROR"
)

// StatusInfo describes a running daemon.
type StatusInfo struct {
	Version string `json:"version"`
	Source  string `json:"source"`
	Session string `json:"session"`
	Pinned  int    `json:"pinned"`
	Normal  int    `json:"normal"`
	DataDir string `json:"data_dir"`
}

// Message is the top-level control envelope.
type Message struct {
	Type Type `json:"type"`

	// LIST — optional search query
	Query string `json:"query,omitempty"`

	// PASTE / PIN / DELETE — target entry
	ID string `json:"id,omitempty"`

	// CLEAR — when set, pinned entries are removed too
	All bool `json:"all,omitempty"`

	// ENTRIES
	Entries []entry.Entry `json:"entries,omitempty"`

	// STATUS_RESPONSE
	Status *StatusInfo `json:"status,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("control decode: %w", err)
	}
	return &m, nil
}

// Errorf builds an ERROR response.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}
