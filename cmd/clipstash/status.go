package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.klb.dev/clipstash/internal/control"
	"go.klb.dev/clipstash/internal/ipc"
)

func newStatusCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := request(&control.Message{Type: control.TypeStatus})
			if err != nil {
				return err
			}
			if resp.Status == nil {
				return fmt.Errorf("malformed status response")
			}
			if jsonOut {
				enc, _ := json.MarshalIndent(resp.Status, "", "  ")
				fmt.Println(string(enc))
				return nil
			}

			s := resp.Status
			w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Version:\t%s\n", s.Version)
			fmt.Fprintf(w, "Socket:\t%s\n", ipc.SocketPath())
			fmt.Fprintf(w, "Session:\t%s\n", s.Session)
			fmt.Fprintf(w, "Channel:\t%s\n", s.Source)
			fmt.Fprintf(w, "Data dir:\t%s\n", s.DataDir)
			fmt.Fprintf(w, "Entries:\t%d pinned, %d recent\n", s.Pinned, s.Normal)
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output raw JSON")
	return cmd
}
