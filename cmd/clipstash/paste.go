package main

import (
	"github.com/spf13/cobra"

	"go.klb.dev/clipstash/internal/control"
)

func newPasteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paste <id>",
		Short: "Put a history entry back on the clipboard",
		Long: `Writes the entry's content to the system clipboard through the running
daemon, which arms echo suppression so its own write is not re-captured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, err := request(&control.Message{Type: control.TypePaste, ID: args[0]})
			return err
		},
	}
}
