package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.klb.dev/clipstash/internal/control"
)

func newPinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Toggle an entry's pinned state",
		Long: `Pinned entries survive "clear" and are exempt from capacity eviction.
Running pin on an already-pinned entry unpins it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, err := request(&control.Message{Type: control.TypePin, ID: args[0]})
			return err
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, err := request(&control.Message{Type: control.TypeDelete, ID: args[0]})
			return err
		},
	}
}

func newClearCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the history (pinned entries survive unless --all)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := request(&control.Message{Type: control.TypeClear, All: all}); err != nil {
				return err
			}
			if all {
				fmt.Println("History cleared, including pinned entries.")
			} else {
				fmt.Println("History cleared; pinned entries kept.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove pinned entries too")
	return cmd
}
