package source

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"
)

const (
	// watcherDrainDelay is the quiet period used to frame one emission:
	// wl-paste writes each clipboard value with no delimiter, possibly in
	// several chunks, so a change is complete once the stream has been
	// silent this long.
	watcherDrainDelay = 50 * time.Millisecond

	watcherRestartCooldown = time.Second
	watcherKillTimeout     = 2 * time.Second
)

// Watcher is the poll-variant change source. It supervises a long-lived
// `wl-paste --no-newline --watch cat` subprocess whose stdout emits the
// clipboard text once per change, frames the delimiter-less stream with a
// settle-delay-then-drain heuristic, and delivers decoded text on Texts().
//
// The subprocess is restarted with a cooldown if it exits unexpectedly.
// All I/O happens on background goroutines; the daemon's logic loop is the
// sole consumer of Texts().
type Watcher struct {
	bin     string
	texts   chan string
	done    chan struct{}
	stopped chan struct{}

	drain    time.Duration
	cooldown time.Duration

	mu       sync.Mutex
	cmd      *exec.Cmd
	lastEmit string
}

// NewWatcher returns an unstarted Watcher using wl-paste from PATH.
func NewWatcher() *Watcher {
	return &Watcher{
		bin:      "wl-paste",
		texts:    make(chan string, 16),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		drain:    watcherDrainDelay,
		cooldown: watcherRestartCooldown,
	}
}

func (w *Watcher) Name() string { return "watcher (wl-paste)" }

// Texts delivers framed clipboard text emissions. The channel is never
// closed.
func (w *Watcher) Texts() <-chan string { return w.texts }

// Start reads the current clipboard once, spawns the watch subprocess, and
// begins listening. A missing wl-paste binary fails here, once; the caller
// disables background capture for the session.
func (w *Watcher) Start() error {
	if _, err := exec.LookPath(w.bin); err != nil {
		close(w.stopped)
		return fmt.Errorf("watcher: %w", err)
	}

	w.readInitial()

	cmd, out, err := w.spawn()
	if err != nil {
		close(w.stopped)
		return fmt.Errorf("watcher: %w", err)
	}
	go w.run(cmd, out)
	return nil
}

// Close signals the listener to exit and tears the subprocess down, waiting a
// bounded time before escalating to SIGKILL. Never blocks indefinitely.
func (w *Watcher) Close() {
	close(w.done)

	w.mu.Lock()
	cmd := w.cmd
	w.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-w.stopped:
	case <-time.After(watcherKillTimeout):
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		select {
		case <-w.stopped:
		case <-time.After(time.Second):
			slog.Warn("clipboard watcher did not stop in time")
		}
	}
}

// readInitial captures the clipboard content present at startup.
func (w *Watcher) readInitial() {
	out, err := exec.Command(w.bin, "--no-newline").Output()
	if err != nil {
		// Empty clipboard makes wl-paste exit non-zero; nothing to capture.
		return
	}
	w.emit(out)
}

func (w *Watcher) spawn() (*exec.Cmd, io.ReadCloser, error) {
	cmd := exec.Command(w.bin, "--no-newline", "--watch", "cat")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", w.bin, err)
	}
	w.mu.Lock()
	w.cmd = cmd
	w.mu.Unlock()
	slog.Info("clipboard watcher started", "pid", cmd.Process.Pid)
	return cmd, out, nil
}

// run listens on the subprocess stream and keeps it alive across crashes.
// Each restart cycle sleeps the cooldown first so a crash-looping wl-paste
// never busy-loops the daemon.
func (w *Watcher) run(cmd *exec.Cmd, out io.ReadCloser) {
	defer close(w.stopped)
	for {
		w.listen(out)
		err := cmd.Wait()

		select {
		case <-w.done:
			return
		default:
		}

		slog.Warn("clipboard watcher exited, restarting", "err", err)
		for {
			if !w.sleep(w.cooldown) {
				return
			}
			var spawnErr error
			cmd, out, spawnErr = w.spawn()
			if spawnErr == nil {
				break
			}
			slog.Error("clipboard watcher restart failed", "err", spawnErr)
			if !w.sleep(4 * w.cooldown) {
				return
			}
		}
	}
}

// listen frames the raw stream into emissions until it ends.
func (w *Watcher) listen(out io.Reader) {
	chunks := make(chan []byte, 8)
	go func() {
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, err := out.Read(buf)
			if n > 0 {
				c := make([]byte, n)
				copy(c, buf[:n])
				select {
				case chunks <- c:
				case <-w.done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case first, ok := <-chunks:
			if !ok {
				return
			}
			data, open := coalesce(chunks, first, w.drain)
			w.emit(data)
			if !open {
				return
			}
		}
	}
}

// coalesce drains chunks arriving within quiet of each other into one
// emission. Returns the collected bytes and whether the channel is still
// open.
func coalesce(chunks <-chan []byte, first []byte, quiet time.Duration) ([]byte, bool) {
	data := first
	t := time.NewTimer(quiet)
	defer t.Stop()
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				return data, false
			}
			data = append(data, c...)
			if !t.Stop() {
				<-t.C
			}
			t.Reset(quiet)
		case <-t.C:
			return data, true
		}
	}
}

// emit decodes and delivers one framed emission, dropping non-UTF-8 data,
// empties, and repeats of the previous emission.
func (w *Watcher) emit(data []byte) {
	if !utf8.Valid(data) {
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return
	}

	w.mu.Lock()
	if text == w.lastEmit {
		w.mu.Unlock()
		return
	}
	w.lastEmit = text
	w.mu.Unlock()

	select {
	case w.texts <- text:
	case <-w.done:
	}
}

func (w *Watcher) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-w.done:
		return false
	}
}
