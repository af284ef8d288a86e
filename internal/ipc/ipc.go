// Package ipc provides the local Unix-socket channel that CLI sub-commands
// (list/paste/pin/delete/clear/status) use to talk to the running daemon.
//
// The socket doubles as the single-instance lock: a second daemon refuses to
// start while something answers on the socket path.
package ipc

import (
	"net"
	"os"
	"path/filepath"
)

// SocketPath returns the control socket path.
//
//	$CLIPSTASH_SOCKET          — explicit override
//	$XDG_RUNTIME_DIR/clipstash.sock
//	$TMPDIR/clipstash.sock     — fallback
func SocketPath() string {
	if s := os.Getenv("CLIPSTASH_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipstash.sock")
	}
	return filepath.Join(os.TempDir(), "clipstash.sock")
}

// IsRunning reports whether a daemon appears to be listening on the control
// socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := net.Dial("unix", SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a net.Listener on the socket path, removing any stale socket
// file from a previous (crashed) run first.
func Listen() (net.Listener, error) {
	path := SocketPath()
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

// Dial connects to the control socket.
func Dial() (net.Conn, error) {
	return net.Dial("unix", SocketPath())
}
