package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstash/internal/control"
	"go.klb.dev/clipstash/internal/entry"
	"go.klb.dev/clipstash/internal/ipc"
	"go.klb.dev/clipstash/internal/store"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clipboard history entries",
		Long: `Prints the history in display order: pinned entries first, then the rest,
newest first.

Talks to the running daemon when one is up; otherwise reads the history file
directly from --data-dir (read-only).`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runList(v) },
	}

	f := cmd.Flags()
	f.String("search", "", "case-insensitive substring filter")
	f.Bool("json", false, "output raw JSON")
	addDataDirFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runList(v *viper.Viper) error {
	query := v.GetString("search")

	var entries []entry.Entry
	if ipc.IsRunning() {
		resp, err := request(&control.Message{Type: control.TypeList, Query: query})
		if err != nil {
			return err
		}
		entries = resp.Entries
	} else {
		st, err := store.Open(store.Options{
			Dir:           v.GetString("data-dir"),
			MaxItems:      v.GetInt("max-items"),
			MaxContentLen: v.GetInt("max-content-length"),
		})
		if err != nil {
			return err
		}
		entries = st.Search(query)
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("History is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\tID\tKIND\tAGE\tPREVIEW\n")
	_, _ = fmt.Fprintf(tw, "\t--\t----\t---\t-------\n")
	for _, e := range entries {
		marker := ""
		if e.Pinned {
			marker = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			marker, e.ID, e.Kind, fmtAge(e.Timestamp), e.Preview)
	}
	return tw.Flush()
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return t.Format("2006-01-02")
}
