package main

import (
	"fmt"

	"go.klb.dev/clipstash/internal/control"
	"go.klb.dev/clipstash/internal/ipc"
	"go.klb.dev/clipstash/internal/wire"
)

// request sends one control message to the running daemon and returns its
// response. ERROR responses come back as Go errors.
func request(msg *control.Message) (*control.Message, error) {
	conn, err := ipc.Dial()
	if err != nil {
		return nil, fmt.Errorf("no clipstash daemon running (%s): %w", ipc.SocketPath(), err)
	}
	defer conn.Close()

	wc := wire.New(conn)
	if err := wc.WriteMsg(msg); err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	resp, err := wc.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	if resp.Type == control.TypeError {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}
