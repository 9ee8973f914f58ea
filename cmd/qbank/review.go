package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/jsonio"
	"github.com/cognicore/qbank/pkg/qbank/report"
	"github.com/cognicore/qbank/pkg/qbank/review"
)

func newReviewCmd(a *app) *cobra.Command {
	var queueIn, fromXLSX string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Approve or reject review queue items",
		Long: `Walk the pending items of the review queue and record a decision for each.

Interactive keys: a = approve, r = reject, s = skip, q = quit. Rejected
items are ignored by "qbank batch". With --from-xlsx the decisions are
read from the recommended_action column of a spreadsheet written by
"qbank export" instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queuePath := a.docPath(queueIn, queueJSON)

			return a.runStage(cmd.Context(), "review", false, func(runID string) (stageOutcome, error) {
				q, err := readQueue(queuePath)
				if err != nil {
					return stageOutcome{}, err
				}

				var tally review.Tally
				if fromXLSX != "" {
					tally, err = importXLSX(a.path(fromXLSX), q)
				} else {
					tally, err = reviewInteractive(cmd, a, q)
				}
				if err != nil {
					return stageOutcome{}, err
				}

				if err := jsonio.WriteFile(queuePath, q); err != nil {
					return stageOutcome{}, fmt.Errorf("write %s: %w", queuePath, err)
				}
				mdPath := a.docPath("", queueMD)
				if err := report.WriteFile(mdPath, report.QueueMarkdown(q)); err != nil {
					return stageOutcome{}, fmt.Errorf("write %s: %w", mdPath, err)
				}

				fmt.Fprintln(a.out)
				a.count("Approved", tally.Approved)
				a.count("Rejected", tally.Rejected)
				a.count("Skipped", tally.Skipped)
				a.done("Updated %s", a.rel(queuePath))
				return stageOutcome{Summary: tally, Artifact: queuePath}, nil
			})
		},
	}

	cmd.Flags().StringVar(&queueIn, "queue", "", "review queue JSON (default <docs>/"+queueJSON+")")
	cmd.Flags().StringVar(&fromXLSX, "from-xlsx", "", "read decisions from an exported spreadsheet")
	return cmd
}

func importXLSX(path string, q *review.Queue) (review.Tally, error) {
	f, err := os.Open(path)
	if err != nil {
		return review.Tally{}, err
	}
	defer f.Close()
	return report.ImportDecisions(f, q)
}

func reviewInteractive(cmd *cobra.Command, a *app, q *review.Queue) (review.Tally, error) {
	p, err := newLinePrompter(a.out)
	if err != nil {
		return review.Tally{}, err
	}
	defer p.Close()
	return review.NewReviewer(p).Review(cmd.Context(), q)
}
