// Package session detects the desktop session type, which decides whether the
// daemon captures via the event channel (X11) or the wl-paste watcher
// (Wayland).
package session

import (
	"os"
	"os/exec"
	"strings"
)

// Type is the detected session kind.
type Type string

const (
	X11     Type = "x11"
	Wayland Type = "wayland"
	Unknown Type = "unknown"
)

// Detect returns the current session type from XDG_SESSION_TYPE, falling back
// to the presence of WAYLAND_DISPLAY or DISPLAY.
func Detect() Type {
	switch strings.ToLower(os.Getenv("XDG_SESSION_TYPE")) {
	case "wayland":
		return Wayland
	case "x11":
		return X11
	}
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return Wayland
	}
	if os.Getenv("DISPLAY") != "" {
		return X11
	}
	return Unknown
}

// HasWlPaste reports whether the wl-paste binary is on PATH.
func HasWlPaste() bool {
	_, err := exec.LookPath("wl-paste")
	return err == nil
}

// HasWlCopy reports whether the wl-copy binary is on PATH.
func HasWlCopy() bool {
	_, err := exec.LookPath("wl-copy")
	return err == nil
}
