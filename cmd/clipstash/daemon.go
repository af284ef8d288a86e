package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstash/internal/capture"
	"go.klb.dev/clipstash/internal/control"
	"go.klb.dev/clipstash/internal/entry"
	"go.klb.dev/clipstash/internal/ipc"
	"go.klb.dev/clipstash/internal/session"
	"go.klb.dev/clipstash/internal/source"
	"go.klb.dev/clipstash/internal/store"
	"go.klb.dev/clipstash/internal/wire"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the clipboard capture daemon",
		Long: `Watches the system clipboard and records changes into the history.

The capture channel is chosen from the session type: X11 sessions use
owner-change events, Wayland sessions use a wl-paste watcher process. Only one
instance may run per user; a second daemon exits if the control socket is
already answered.

Config file search order:
  /etc/clipstash/clipstash.toml
  $HOME/.config/clipstash/clipstash.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPSTASH_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runDaemon(v) },
	}

	f := cmd.Flags()
	f.Int("max-items", store.DefaultMaxItems, "non-pinned history capacity")
	f.Int("max-content-length", store.DefaultMaxContentLen, "text content limit in code points")
	f.String("channel", "auto", "capture channel: auto|event|watcher")
	addDataDirFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(v *viper.Viper) error {
	setupLogging(v)

	if ipc.IsRunning() {
		return fmt.Errorf("another clipstash daemon is already running on %s", ipc.SocketPath())
	}

	dataDir := v.GetString("data-dir")
	sess := session.Detect()

	st, err := store.Open(store.Options{
		Dir:           dataDir,
		MaxItems:      v.GetInt("max-items"),
		MaxContentLen: v.GetInt("max-content-length"),
	})
	if err != nil {
		return err
	}
	st.SetOnAdd(func(e entry.Entry) {
		slog.Info("captured", "id", e.ID, "kind", e.Kind, "preview", e.Preview)
	})

	channel := v.GetString("channel")
	if channel == "auto" {
		if sess == session.Wayland && session.HasWlPaste() {
			channel = "watcher"
		} else {
			channel = "event"
		}
	}

	slog.Info("clipstash daemon starting",
		"version", Version,
		"session", sess,
		"channel", channel,
		"data_dir", dataDir,
	)

	var (
		changes <-chan struct{}
		texts   <-chan string
		closer  func()
		reader  capture.Reader
		writer  capture.Writer
	)
	switch channel {
	case "watcher":
		w := source.NewWatcher()
		if err := w.Start(); err != nil {
			// Degrade rather than die: history and CLI verbs still work,
			// only live capture is missing.
			slog.Error("background capture disabled", "err", err)
		} else {
			texts = w.Texts()
			closer = w.Close
		}
		if session.HasWlCopy() {
			writer = source.NewWlCopy()
		}
	case "event":
		ev, err := source.NewEvent()
		if err != nil {
			slog.Error("background capture disabled", "err", err)
		} else {
			changes = ev.Changes()
			closer = ev.Close
			reader = ev
			writer = ev
		}
	default:
		return fmt.Errorf("unknown capture channel %q", channel)
	}

	machine := capture.New(st, capture.Options{Reader: reader, Writer: writer})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ipcLn, err := ipc.Listen()
	if err != nil {
		if closer != nil {
			closer()
		}
		return fmt.Errorf("control socket: %w", err)
	}
	slog.Info("control socket listening", "path", ipc.SocketPath())
	d := &daemon{store: st, machine: machine, session: sess, channel: channel, dataDir: dataDir}
	go d.serveIPC(ipcLn)

	// Logic loop: sole consumer of adapter channels, sole snapshot-driven
	// store writer. Adapter goroutines only do I/O and hand off here.
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			_ = ipcLn.Close()
			if closer != nil {
				closer()
			}
			return nil
		case <-changes:
			machine.HandleOwnerChange()
		case text := <-texts:
			machine.HandleWatcherText(text)
		}
	}
}

type daemon struct {
	store   *store.Store
	machine *capture.Machine
	session session.Type
	channel string
	dataDir string
}

func (d *daemon) serveIPC(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Error("control accept failed", "err", err)
			}
			return
		}
		go d.handleConn(conn)
	}
}

func (d *daemon) handleConn(conn net.Conn) {
	defer conn.Close()
	wc := wire.New(conn)

	msg, err := wc.ReadMsg()
	if err != nil {
		return
	}
	_ = wc.WriteMsg(d.handle(msg))
}

func (d *daemon) handle(msg *control.Message) *control.Message {
	switch msg.Type {
	case control.TypeList:
		return &control.Message{Type: control.TypeEntries, Entries: d.store.Search(msg.Query)}

	case control.TypePaste:
		e, ok := d.store.Get(msg.ID)
		if !ok {
			return control.Errorf("no entry %s", msg.ID)
		}
		if err := d.machine.Paste(e); err != nil {
			return control.Errorf("%v", err)
		}
		return &control.Message{Type: control.TypeOK}

	case control.TypePin:
		if !d.store.TogglePin(msg.ID) {
			return control.Errorf("no entry %s", msg.ID)
		}
		return &control.Message{Type: control.TypeOK}

	case control.TypeDelete:
		if !d.store.Delete(msg.ID) {
			return control.Errorf("no entry %s", msg.ID)
		}
		return &control.Message{Type: control.TypeOK}

	case control.TypeClear:
		d.store.Clear(!msg.All)
		return &control.Message{Type: control.TypeOK}

	case control.TypeStatus:
		pinned, normal := d.store.Len()
		return &control.Message{
			Type: control.TypeStatusResponse,
			Status: &control.StatusInfo{
				Version: Version,
				Source:  d.channel,
				Session: string(d.session),
				Pinned:  pinned,
				Normal:  normal,
				DataDir: d.dataDir,
			},
		}
	}
	return control.Errorf("unknown request type %q", msg.Type)
}
