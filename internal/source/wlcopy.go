package source

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

const wlCopyImageTimeout = 2 * time.Second

// WlCopy writes paste content to the Wayland clipboard via the wl-copy
// binary. wl-copy stays resident to serve the clipboard after a text write,
// so that path never waits for it to exit.
type WlCopy struct {
	bin string
}

// NewWlCopy returns a writer using wl-copy from PATH.
func NewWlCopy() *WlCopy {
	return &WlCopy{bin: "wl-copy"}
}

// WriteText hands text to wl-copy over stdin and leaves it running.
func (w *WlCopy) WriteText(text string) error {
	cmd := exec.Command(w.bin)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("wl-copy stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start wl-copy: %w", err)
	}
	if _, err := io.WriteString(stdin, text); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("write to wl-copy: %w", err)
	}
	if err := stdin.Close(); err != nil {
		return fmt.Errorf("close wl-copy stdin: %w", err)
	}
	// Reap the process whenever another clipboard owner replaces it.
	go func() { _ = cmd.Wait() }()
	return nil
}

// WriteImageFile streams the blob at path to wl-copy as image/png, waiting a
// bounded time for the handoff.
func (w *WlCopy) WriteImageFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image blob: %w", err)
	}
	defer f.Close()

	cmd := exec.Command(w.bin, "--type", "image/png")
	cmd.Stdin = f
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start wl-copy: %w", err)
	}

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()
	select {
	case err := <-waited:
		if err != nil {
			return fmt.Errorf("wl-copy: %w", err)
		}
		return nil
	case <-time.After(wlCopyImageTimeout):
		slog.Warn("wl-copy image handoff still pending, leaving it running")
		return nil
	}
}
