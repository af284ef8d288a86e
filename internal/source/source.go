// Package source provides the two clipboard change-source adapters.
//
// Exactly one variant is active per daemon run, chosen from the session type:
//
//	event.go    — X11: owner-change style notifications via golang.design/x/clipboard
//	watcher.go  — Wayland: a supervised wl-paste --watch subprocess
//	wlcopy.go   — Wayland paste writes via wl-copy
//
// Running both against the same physical clipboard would double every
// emission, so the daemon never combines them.
package source
