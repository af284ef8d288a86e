// Package capture decides which clipboard-change notifications become history
// entries. It sits between a change source adapter and the store, filtering
// self-inflicted echoes and repeats of already-seen content.
//
// The two notification channels need different suppression mechanics. The
// event channel delivers one discrete owner-change signal per clipboard write,
// so the echo of our own paste is absorbed by consuming exactly one
// notification. The watcher channel is a continuous stream that may report
// just-written content one or more times within an unpredictable latency
// window, so it gets a time-based cooldown instead.
package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipstash/internal/entry"
	"go.klb.dev/clipstash/internal/store"
)

const (
	// DefaultSettleDelay is how long to wait after an owner-change signal
	// before reading, giving the new clipboard owner time to finish
	// populating its content.
	DefaultSettleDelay = 100 * time.Millisecond

	// DefaultPasteCooldown is the watcher-channel suppression window armed by
	// a paste. Anything the watcher reports inside it is presumed to be an
	// echo of our own write.
	DefaultPasteCooldown = 2 * time.Second
)

// Reader reads the current clipboard content. A false return means the
// content of that type is absent or the read failed; the attempt is abandoned
// either way.
type Reader interface {
	ReadText() (string, bool)
	ReadImage() ([]byte, bool)
}

// Writer writes entry content to the OS clipboard on paste. Images are
// written from their blob file.
type Writer interface {
	WriteText(text string) error
	WriteImageFile(path string) error
}

// Options configures a Machine. Zero fields take defaults.
type Options struct {
	Reader        Reader
	Writer        Writer
	SettleDelay   time.Duration
	PasteCooldown time.Duration
	Now           func() time.Time
}

// Machine is the capture state machine. Snapshot handling is expected to run
// on the daemon's single logic goroutine; Paste may be called from IPC
// handler goroutines, so all suppression state sits behind one mutex.
type Machine struct {
	store  *store.Store
	reader Reader
	writer Writer

	settle   time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu            sync.Mutex
	lastText      string
	lastImageSum  string
	ignoreNext    bool
	suppressUntil time.Time
}

// New returns a Machine writing accepted snapshots into st.
func New(st *store.Store, opts Options) *Machine {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.PasteCooldown == 0 {
		opts.PasteCooldown = DefaultPasteCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		store:    st,
		reader:   opts.Reader,
		writer:   opts.Writer,
		settle:   opts.SettleDelay,
		cooldown: opts.PasteCooldown,
		now:      opts.Now,
	}
}

// HandleOwnerChange processes one event-channel notification. If echo
// suppression is armed the notification is consumed without touching the
// clipboard at all. Otherwise the machine waits out the settle delay, reads
// text first and image second, and forwards whichever is present and not
// already seen.
func (m *Machine) HandleOwnerChange() {
	m.mu.Lock()
	if m.ignoreNext {
		m.ignoreNext = false
		m.mu.Unlock()
		slog.Debug("owner change absorbed after self-write")
		return
	}
	m.mu.Unlock()

	if m.settle > 0 {
		time.Sleep(m.settle)
	}
	if m.reader == nil {
		return
	}

	if text, ok := m.reader.ReadText(); ok {
		m.acceptText(text)
		return
	}
	if img, ok := m.reader.ReadImage(); ok {
		m.acceptImage(img)
	}
	// Neither read succeeded: resource unavailable or unsupported content.
	// Abandon this notification; the next one is handled normally.
}

// HandleWatcherText processes one emission from the watcher channel. Inside
// the paste cooldown everything is dropped unconditionally, regardless of
// content.
func (m *Machine) HandleWatcherText(text string) {
	m.mu.Lock()
	if m.now().Before(m.suppressUntil) {
		m.mu.Unlock()
		slog.Debug("watcher emission dropped inside paste cooldown")
		return
	}
	m.mu.Unlock()
	m.acceptText(text)
}

// Paste arms echo suppression on both channels, pre-seeds last-seen content
// so even an immediate echo reads as already-seen, and writes the entry's
// content to the OS clipboard.
func (m *Machine) Paste(e entry.Entry) error {
	m.mu.Lock()
	m.ignoreNext = true
	m.suppressUntil = m.now().Add(m.cooldown)
	if e.Kind == entry.KindText || e.Kind == entry.KindHTML {
		m.lastText = e.Content
	}
	m.mu.Unlock()

	if m.writer == nil {
		return fmt.Errorf("paste: no clipboard writer configured")
	}

	switch e.Kind {
	case entry.KindText, entry.KindHTML:
		if err := m.writer.WriteText(e.Content); err != nil {
			return fmt.Errorf("paste text: %w", err)
		}
	case entry.KindImage:
		path, ok := m.store.BlobPath(e)
		if !ok {
			return fmt.Errorf("paste: image blob missing for entry %s", e.ID)
		}
		if err := m.writer.WriteImageFile(path); err != nil {
			return fmt.Errorf("paste image: %w", err)
		}
	default:
		return fmt.Errorf("paste: unsupported entry kind %q", e.Kind)
	}

	slog.Info("entry pasted to clipboard", "id", e.ID, "kind", e.Kind)
	return nil
}

func (m *Machine) acceptText(text string) {
	if text == "" {
		return
	}
	m.mu.Lock()
	if text == m.lastText {
		m.mu.Unlock()
		return
	}
	m.lastText = text
	m.mu.Unlock()
	m.store.Add(entry.KindText, text, "")
}

// acceptImage applies the same-process duplicate suppression the event
// channel needs for images: a content digest compared against the last
// captured one. This guards repeat notifications for one physical copy, not
// re-copies of identical bytes later on — those intentionally create new
// entries.
func (m *Machine) acceptImage(data []byte) {
	if len(data) == 0 {
		return
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	m.mu.Lock()
	if digest == m.lastImageSum {
		m.mu.Unlock()
		return
	}
	m.lastImageSum = digest
	m.mu.Unlock()
	m.store.AddImage(data, "png")
}
