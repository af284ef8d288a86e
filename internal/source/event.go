package source

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.design/x/clipboard"
)

const eventPollInterval = 250 * time.Millisecond

// Event is the event-driven change source. It wraps golang.design/x/clipboard
// and turns content changes into discrete owner-change style signals on
// Changes(). It also serves as the capture machine's Reader and Writer on X11.
type Event struct {
	changes chan struct{}
	done    chan struct{}

	lastText []byte
	lastImg  []byte
}

// NewEvent initialises the clipboard and starts change detection. Fails when
// no display environment is available; the caller runs without live capture
// in that case.
func NewEvent() (*Event, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("clipboard unavailable: %w", err)
	}
	e := &Event{
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	// One startup signal so the current clipboard content is captured.
	e.changes <- struct{}{}
	go e.detect()
	return e, nil
}

func (e *Event) Name() string { return "event (x11)" }

// Changes delivers one signal per observed clipboard change. The channel is
// never closed; signals are dropped rather than queued when the consumer is
// behind.
func (e *Event) Changes() <-chan struct{} { return e.changes }

func (e *Event) detect() {
	t := time.NewTicker(eventPollInterval)
	defer t.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			img := clipboard.Read(clipboard.FmtImage)
			if !bytes.Equal(text, e.lastText) || !bytes.Equal(img, e.lastImg) {
				e.lastText = text
				e.lastImg = img
				select {
				case e.changes <- struct{}{}:
				default:
				}
			}
		}
	}
}

// ReadText returns the current clipboard text, if any.
func (e *Event) ReadText() (string, bool) {
	b := clipboard.Read(clipboard.FmtText)
	if len(b) == 0 {
		return "", false
	}
	return string(b), true
}

// ReadImage returns the current clipboard image as PNG bytes, if any.
func (e *Event) ReadImage() ([]byte, bool) {
	b := clipboard.Read(clipboard.FmtImage)
	if len(b) == 0 {
		return nil, false
	}
	return b, true
}

// WriteText sets the clipboard to the given text.
func (e *Event) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// WriteImageFile sets the clipboard to the PNG image stored at path.
func (e *Event) WriteImageFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image blob: %w", err)
	}
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

// Close stops change detection.
func (e *Event) Close() {
	close(e.done)
	slog.Debug("event source closed")
}
