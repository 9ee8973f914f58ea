package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/batch"
	"github.com/cognicore/qbank/pkg/qbank/internalerr"
	"github.com/cognicore/qbank/pkg/qbank/jsonio"
	"github.com/cognicore/qbank/pkg/qbank/reconcile"
	"github.com/cognicore/qbank/pkg/qbank/report"
)

const (
	reconcileJSON = "relevance_queue_reconcile_result.json"
	reconcileMD   = "relevance_queue_reconcile_result.md"
)

func newReconcileCmd(a *app) *cobra.Command {
	var (
		batchIn, jsonOut, mdOut string
		apply                   bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Remove source copies left behind by a batch run",
		Long: `Replay the move and remove actions of a batch result and drop the source
copy of every question whose text is now present in its target topic.

Running it twice is safe: the second run finds nothing to remove.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batchPath := a.docPath(batchIn, batchJSON)
			jsonPath := a.docPath(jsonOut, reconcileJSON)
			mdPath := a.docPath(mdOut, reconcileMD)

			return a.runStage(cmd.Context(), "reconcile", apply, func(runID string) (stageOutcome, error) {
				var br batch.Result
				if err := jsonio.ReadFile(batchPath, &br); err != nil {
					return stageOutcome{}, fmt.Errorf("%w: batch result: %v", internalerr.ErrInvalidInput, err)
				}
				c, err := a.loadCorpus()
				if err != nil {
					return stageOutcome{}, err
				}

				a.dryRunBanner(apply)
				res := reconcile.Run(c, br.Actions, apply)
				res.RunID = runID
				if err := a.save(c, apply); err != nil {
					return stageOutcome{}, err
				}
				if err := a.writeArtifacts(jsonPath, res, mdPath, report.ReconcileMarkdown(res)); err != nil {
					return stageOutcome{}, err
				}

				a.count("Leftover source copies", res.Summary.RemovedLeftovers)
				a.count("Files changed", res.Summary.FilesChanged)
				a.done("Wrote %s", a.rel(jsonPath))
				return stageOutcome{Summary: res.Summary, Artifact: jsonPath}, nil
			})
		},
	}

	cmd.Flags().StringVar(&batchIn, "batch-result", "", "batch result JSON (default <docs>/"+batchJSON+")")
	cmd.Flags().StringVar(&jsonOut, "json-out", "", "result JSON path (default <docs>/"+reconcileJSON+")")
	cmd.Flags().StringVar(&mdOut, "md-out", "", "result Markdown path (default <docs>/"+reconcileMD+")")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the changed topic files")
	return cmd
}
