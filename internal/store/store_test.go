package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipstash/internal/entry"
)

// testClock hands out strictly increasing timestamps.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func openTest(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	if opts.Now == nil {
		opts.Now = newTestClock().now
	}
	s, err := Open(opts)
	require.NoError(t, err)
	return s
}

func TestAddRejectsEmptyContent(t *testing.T) {
	s := openTest(t, Options{})
	assert.Nil(t, s.Add(entry.KindText, "", ""))
	assert.Nil(t, s.Add(entry.KindText, "   \n\t ", ""))
	assert.Empty(t, s.Entries())

	// No persistence write happened either.
	_, err := os.Stat(filepath.Join(s.dir, historyFile))
	assert.True(t, os.IsNotExist(err))
}

func TestAddDedupRefreshesTimestamp(t *testing.T) {
	clock := newTestClock()
	s := openTest(t, Options{Now: clock.now})

	first := s.Add(entry.KindText, "hello", "")
	require.NotNil(t, first)
	second := s.Add(entry.KindText, "hello", "")
	require.NotNil(t, second)

	assert.Equal(t, first.ID, second.ID, "dedup must not mint a new identity")
	assert.True(t, second.Timestamp.After(first.Timestamp))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, second.Timestamp, entries[0].Timestamp)
}

func TestAddDedupIsPerKind(t *testing.T) {
	s := openTest(t, Options{})
	s.Add(entry.KindText, "same", "")
	s.Add(entry.KindHTML, "same", "")
	assert.Len(t, s.Entries(), 2)
}

func TestTruncateThenCompare(t *testing.T) {
	s := openTest(t, Options{MaxContentLen: 10})

	long := strings.Repeat("a", 50)
	e := s.Add(entry.KindText, long, "")
	require.NotNil(t, e)
	assert.Equal(t, strings.Repeat("a", 10), e.Content)

	// Re-adding the untruncated original matches the stored truncated value.
	again := s.Add(entry.KindText, long, "")
	require.NotNil(t, again)
	assert.Equal(t, e.ID, again.ID)
	assert.Len(t, s.Entries(), 1)
}

func TestCapacityEvictsOldestNonPinned(t *testing.T) {
	clock := newTestClock()
	s := openTest(t, Options{MaxItems: 3, Now: clock.now})

	oldest := s.Add(entry.KindText, "one", "")
	s.Add(entry.KindText, "two", "")
	s.Add(entry.KindText, "three", "")
	s.Add(entry.KindText, "four", "")

	entries := s.Entries()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.NotEqual(t, oldest.ID, e.ID)
	}
	// Newest first.
	assert.Equal(t, "four", entries[0].Content)
	assert.Equal(t, "three", entries[1].Content)
	assert.Equal(t, "two", entries[2].Content)
}

func TestPinExemptsFromEviction(t *testing.T) {
	clock := newTestClock()
	s := openTest(t, Options{MaxItems: 2, Now: clock.now})

	oldest := s.Add(entry.KindText, "keep me", "")
	require.True(t, s.TogglePin(oldest.ID))
	s.Add(entry.KindText, "two", "")
	s.Add(entry.KindText, "three", "")
	s.Add(entry.KindText, "four", "")

	entries := s.Entries()
	require.Len(t, entries, 3)
	// Pinned first regardless of age.
	assert.Equal(t, oldest.ID, entries[0].ID)
	assert.True(t, entries[0].Pinned)

	pinned, normal := s.Len()
	assert.Equal(t, 1, pinned)
	assert.Equal(t, 2, normal)
}

func TestDisplayOrder(t *testing.T) {
	clock := newTestClock()
	s := openTest(t, Options{Now: clock.now})

	a := s.Add(entry.KindText, "a", "")
	b := s.Add(entry.KindText, "b", "")
	c := s.Add(entry.KindText, "c", "")
	s.TogglePin(a.ID)
	s.TogglePin(b.ID)

	got := s.Entries()
	require.Len(t, got, 3)
	// Pinned group newest-first, then non-pinned.
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)
	assert.Equal(t, c.ID, got[2].ID)
}

func TestDeleteEntry(t *testing.T) {
	s := openTest(t, Options{})
	e := s.Add(entry.KindText, "bye", "")
	require.NotNil(t, e)

	assert.True(t, s.Delete(e.ID))
	assert.False(t, s.Delete(e.ID))
	assert.Empty(t, s.Entries())
}

func TestTogglePinUnknownID(t *testing.T) {
	s := openTest(t, Options{})
	assert.False(t, s.TogglePin("nope"))
}

func TestAddImageBlobLifetime(t *testing.T) {
	s := openTest(t, Options{})

	e := s.AddImage([]byte{0x89, 'P', 'N', 'G'}, "png")
	require.NotNil(t, e)
	assert.Equal(t, entry.KindImage, e.Kind)
	assert.Equal(t, e.ID+".png", e.Content)

	path, ok := s.BlobPath(*e)
	require.True(t, ok)
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.True(t, s.Delete(e.ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "blob must die with its entry")
}

func TestAddImageRejectsEmpty(t *testing.T) {
	s := openTest(t, Options{})
	assert.Nil(t, s.AddImage(nil, "png"))
}

func TestImagesNeverDeduplicated(t *testing.T) {
	s := openTest(t, Options{})
	data := []byte("same bytes")
	a := s.AddImage(data, "png")
	b := s.AddImage(data, "png")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, s.Entries(), 2)
}

func TestEvictionDeletesBlobs(t *testing.T) {
	clock := newTestClock()
	s := openTest(t, Options{MaxItems: 1, Now: clock.now})

	old := s.AddImage([]byte("first image"), "png")
	oldPath, ok := s.BlobPath(*old)
	require.True(t, ok)

	s.AddImage([]byte("second image"), "png")

	require.Len(t, s.Entries(), 1)
	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "evicted image blob must be removed")
}

func TestClearKeepPinned(t *testing.T) {
	s := openTest(t, Options{})
	pinned := s.Add(entry.KindText, "pinned", "")
	s.TogglePin(pinned.ID)
	s.Add(entry.KindText, "normal", "")
	img := s.AddImage([]byte("img"), "png")
	imgPath, ok := s.BlobPath(*img)
	require.True(t, ok)

	s.Clear(true)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, pinned.ID, entries[0].ID)
	_, err := os.Stat(imgPath)
	assert.True(t, os.IsNotExist(err))
}

func TestClearAll(t *testing.T) {
	s := openTest(t, Options{})
	pinned := s.Add(entry.KindText, "pinned", "")
	s.TogglePin(pinned.ID)
	s.Add(entry.KindText, "normal", "")

	s.Clear(false)
	assert.Empty(t, s.Entries())
}

func TestSearch(t *testing.T) {
	clock := newTestClock()
	s := openTest(t, Options{Now: clock.now})

	s.Add(entry.KindText, "Hello World", "")
	s.Add(entry.KindText, "goodbye", "")
	s.Add(entry.KindText, "HELLO again", "")

	assert.Equal(t, s.Entries(), s.Search(""))

	hits := s.Search("hello")
	require.Len(t, hits, 2)
	// Same relative order as the display view.
	assert.Equal(t, "HELLO again", hits[0].Content)
	assert.Equal(t, "Hello World", hits[1].Content)

	assert.Empty(t, s.Search("no such thing"))
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	clock := newTestClock()

	s := openTest(t, Options{Dir: dir, Now: clock.now})
	a := s.Add(entry.KindText, "persisted", "")
	s.TogglePin(a.ID)

	reopened := openTest(t, Options{Dir: dir})
	entries := reopened.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, a.ID, entries[0].ID)
	assert.Equal(t, "persisted", entries[0].Content)
	assert.True(t, entries[0].Pinned)
}

func TestLoadSkipsMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, imagesDir), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, historyFile), []byte(`[
		{"id":"good00000001","kind":"text","content":"one","preview":"one","timestamp":"2024-05-01T10:00:00Z"},
		12345,
		{"id":"good00000002","kind":"text","content":"two","preview":"two","timestamp":"2024-05-01T10:00:01Z"}
	]`), 0o600))

	s := openTest(t, Options{Dir: dir})
	assert.Len(t, s.Entries(), 2)
}

func TestLoadCorruptFileYieldsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, historyFile), []byte("not json at all"), 0o600))

	s := openTest(t, Options{Dir: dir})
	assert.Empty(t, s.Entries())
}

func TestOnAddHook(t *testing.T) {
	s := openTest(t, Options{})
	var got []string
	s.SetOnAdd(func(e entry.Entry) { got = append(got, e.Content) })

	s.Add(entry.KindText, "one", "")
	s.Add(entry.KindText, "one", "") // dedup still notifies
	e := s.Add(entry.KindText, "two", "")
	s.Delete(e.ID) // no notification
	s.Clear(true)  // no notification

	assert.Equal(t, []string{"one", "one", "two"}, got)
}
