package source

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipe(t *testing.T) (io.Reader, io.WriteCloser) {
	t.Helper()
	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	return r, w
}

func testWatcher() *Watcher {
	w := NewWatcher()
	w.drain = 5 * time.Millisecond
	return w
}

func TestCoalesceMergesBurstChunks(t *testing.T) {
	chunks := make(chan []byte, 4)
	chunks <- []byte("world")
	chunks <- []byte("!")

	data, open := coalesce(chunks, []byte("hello "), 10*time.Millisecond)
	assert.True(t, open)
	assert.Equal(t, "hello world!", string(data))
}

func TestCoalesceStopsOnQuiet(t *testing.T) {
	chunks := make(chan []byte, 4)
	go func() {
		// Arrives well after the quiet period: belongs to the next emission.
		time.Sleep(50 * time.Millisecond)
		chunks <- []byte("late")
	}()

	data, open := coalesce(chunks, []byte("first"), 5*time.Millisecond)
	assert.True(t, open)
	assert.Equal(t, "first", string(data))
}

func TestCoalesceReportsClosedStream(t *testing.T) {
	chunks := make(chan []byte, 1)
	chunks <- []byte("tail")
	close(chunks)

	data, open := coalesce(chunks, []byte("head "), 10*time.Millisecond)
	assert.False(t, open)
	assert.Equal(t, "head tail", string(data))
}

func TestEmitDropsEmptyAndRepeats(t *testing.T) {
	w := testWatcher()

	w.emit([]byte("  \n "))
	w.emit([]byte("hello"))
	w.emit([]byte("hello"))
	w.emit([]byte("hello\n")) // trims to the same value
	w.emit([]byte("world"))

	require.Len(t, w.texts, 2)
	assert.Equal(t, "hello", <-w.texts)
	assert.Equal(t, "world", <-w.texts)
}

func TestEmitDropsInvalidUTF8(t *testing.T) {
	w := testWatcher()
	w.emit([]byte{0xff, 0xfe, 0xfd})
	assert.Empty(t, w.texts)
}

func TestListenFramesStream(t *testing.T) {
	w := testWatcher()
	r, wr := newPipe(t)

	done := make(chan struct{})
	go func() {
		w.listen(r)
		close(done)
	}()

	_, err := wr.Write([]byte("first value"))
	require.NoError(t, err)
	select {
	case got := <-w.texts:
		assert.Equal(t, "first value", got)
	case <-time.After(time.Second):
		t.Fatal("no emission for first value")
	}

	_, err = wr.Write([]byte("second value"))
	require.NoError(t, err)
	select {
	case got := <-w.texts:
		assert.Equal(t, "second value", got)
	case <-time.After(time.Second):
		t.Fatal("no emission for second value")
	}

	require.NoError(t, wr.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listen did not return on stream end")
	}
}
