// Package entry defines the clipboard history record and its persisted form.
//
// Entries are stored as field-keyed JSON. Decoding is defensive: unknown
// fields are ignored, missing fields get defaults, and a record that does not
// parse at all is dropped rather than failing the whole history load.
package entry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what an entry's content holds.
type Kind string

const (
	KindText  Kind = "text"
	KindHTML  Kind = "html"
	KindImage Kind = "image"
)

// Valid reports whether k is a kind this program knows how to handle.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindHTML, KindImage:
		return true
	}
	return false
}

const (
	// PreviewLen is the maximum preview length in code points.
	PreviewLen = 80
)

// Entry is one clipboard history record.
//
// For text and html kinds Content is the captured payload; for images it is
// the blob filename under the store's image directory. ID is assigned once at
// creation and never reused. Timestamp doubles as created-at and
// last-touched-at: re-capturing duplicate content refreshes it in place,
// which is how "move to top" works.
type Entry struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
	Pinned    bool      `json:"pinned"`
}

// NewID returns a fresh 12-character entry id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Truncate returns the first n code points of s. It is rune-correct, so a
// multi-byte character is never cut in half.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// MakePreview derives the display preview for text-like content: the first
// line, trimmed, cut to PreviewLen code points with an ellipsis marker when
// anything was cut. Image previews are built by the store from the blob size.
func MakePreview(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSpace(line)
	r := []rune(line)
	if len(r) <= PreviewLen {
		return line
	}
	return string(r[:PreviewLen]) + "…"
}

// DecodeRecords parses a persisted history file. Records that fail to decode
// are skipped; decoded records with gaps are repaired (fresh id, text kind,
// derived preview, current timestamp) so one bad field never loses the rest
// of the record. Returns the number of records skipped.
func DecodeRecords(data []byte, now time.Time) ([]Entry, int) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0
	}

	entries := make([]Entry, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal(r, &e); err != nil {
			skipped++
			continue
		}
		if e.ID == "" {
			e.ID = NewID()
		}
		if e.Kind == "" {
			e.Kind = KindText
		}
		if !e.Kind.Valid() {
			skipped++
			continue
		}
		if e.Preview == "" && e.Kind != KindImage {
			e.Preview = MakePreview(e.Content)
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		entries = append(entries, e)
	}
	return entries, skipped
}

// EncodeRecords serialises entries in their stable persisted form.
func EncodeRecords(entries []Entry) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}
