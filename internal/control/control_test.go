package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipstash/internal/entry"
)

func TestEncodeDecode(t *testing.T) {
	in := &Message{
		Type:  TypeEntries,
		Query: "q",
		Entries: []entry.Entry{{
			ID:        "abc123def456",
			Kind:      entry.KindText,
			Content:   "hello",
			Preview:   "hello",
			Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		}},
	}

	raw, err := in.Encode()
	require.NoError(t, err)

	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestErrorf(t *testing.T) {
	m := Errorf("no entry %s", "xyz")
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, "no entry xyz", m.Error)
}
