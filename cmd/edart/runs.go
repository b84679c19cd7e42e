package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) runsCommand() *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return fmt.Errorf("run ledger disabled: set storage.enabled")
			}
			runs, err := a.store.ListRuns(kind, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tKIND\tSTATUS\tOUTPUTS\tDURATION\tSCENE\tMESSAGE")
			for _, r := range runs {
				dur := "-"
				if r.FinishedAt != nil {
					dur = r.Duration().Round(time.Second).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					humanize.Time(r.StartedAt), r.Kind, r.Status, r.Outputs, dur, r.Scene, r.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only list runs of this kind (flatten, extract, prepost, combine)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}
