package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		stage       string
		limit       int
		forceUnlock bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs and the corpus lock holder",
		Long: `Show the most recent runs from the run ledger, newest first.

A crashed applying stage can leave the corpus lock behind; --force-unlock
clears it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer l.Close()

			if forceUnlock {
				if err := l.ForceRelease(ctx); err != nil {
					return err
				}
				a.log.Warn("corpus lock force-released")
				a.done("Corpus lock released")
			}

			lock, held, err := l.Holder(ctx)
			if err != nil {
				return err
			}
			if held {
				fmt.Fprintf(a.out, "%s %s since %s\n", color.YellowString("Corpus locked by"),
					lock.Holder, lock.AcquiredAt.Local().Format(time.DateTime))
			}

			runs, err := l.Runs(ctx, stage, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No runs recorded")
				return nil
			}

			for _, r := range runs {
				mode := "dry-run"
				if r.Applied {
					mode = color.GreenString("applied")
				}
				fmt.Fprintf(a.out, "%s  %-16s %-8s %s  %s\n",
					r.ID, r.Stage, mode, r.FinishedAt.Local().Format(time.DateTime), r.Artifact)
				if len(r.Summary) > 0 {
					fmt.Fprintf(a.out, "    %s\n", r.Summary)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "only show runs of this stage")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	cmd.Flags().BoolVar(&forceUnlock, "force-unlock", false, "clear a stale corpus lock")
	return cmd
}
