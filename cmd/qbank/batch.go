package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/batch"
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/report"
)

const (
	batchJSON = "relevance_queue_batch_result.json"
	batchMD   = "relevance_queue_batch_result.md"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		queueIn, jsonOut, mdOut string
		apply, noSignal         bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Move queued questions to their suggested topic",
		Long: `Process the review queue in descending best_other order.

A question whose text already exists in the target topic is removed from its
source; otherwise it is appended to the target topic's fallback subcategory
and removed from its source. Items below --min-score, rejected items and,
unless --no-signal is given, items without the target topic's signal are
left alone.

Without --apply only the result artifact is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := batch.Options{
				MinScore:      a.settings.MinScore,
				RequireSignal: a.settings.RequireSignal && !noSignal,
				Apply:         apply,
			}
			if cmd.Flags().Changed("min-score") {
				opts.MinScore, _ = cmd.Flags().GetInt("min-score")
			}

			queuePath := a.docPath(queueIn, queueJSON)
			jsonPath := a.docPath(jsonOut, batchJSON)
			mdPath := a.docPath(mdOut, batchMD)

			return a.runStage(cmd.Context(), "batch", apply, func(runID string) (stageOutcome, error) {
				q, err := readQueue(queuePath)
				if err != nil {
					return stageOutcome{}, err
				}
				c, err := a.loadCorpus()
				if err != nil {
					return stageOutcome{}, err
				}

				a.dryRunBanner(apply)
				res := batch.NewMover(a.comp.Taxonomy).Run(c, q, opts)
				res.RunID = runID
				if err := a.save(c, apply); err != nil {
					return stageOutcome{}, err
				}
				if err := a.writeArtifacts(jsonPath, res, mdPath, report.BatchMarkdown(res)); err != nil {
					return stageOutcome{}, err
				}

				f := res.Filtered
				a.log.Debug("queue items filtered",
					"rejected", f.Rejected, "incomplete", f.Incomplete, "low_score", f.LowScore,
					"no_signal", f.NoSignal, "not_found", f.NotFound)

				s := res.Summary
				a.count("Processed actions", s.ProcessedActions)
				a.count("Moved to target", s.Moved)
				a.count("Removed source duplicates", s.RemovedSourceDuplicates)
				a.count("Moves skipped", s.SkippedMoveFailed)
				a.count("Files changed", s.FilesChanged)
				a.done("Wrote %s", a.rel(jsonPath))
				return stageOutcome{Summary: s, Artifact: jsonPath}, nil
			})
		},
	}

	cmd.Flags().StringVar(&queueIn, "queue", "", "review queue JSON (default <docs>/"+queueJSON+")")
	cmd.Flags().StringVar(&jsonOut, "json-out", "", "result JSON path (default <docs>/"+batchJSON+")")
	cmd.Flags().StringVar(&mdOut, "md-out", "", "result Markdown path (default <docs>/"+batchMD+")")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the changed topic files")
	cmd.Flags().BoolVar(&noSignal, "no-signal", false, "do not require the target topic's signal")
	cmd.Flags().Int("min-score", 4, "minimum best_other score")
	return cmd
}

// save writes the mutated topic files when apply is set.
func (a *app) save(c *corpus.Corpus, apply bool) error {
	if !apply {
		return nil
	}
	files, err := c.Save()
	for _, f := range files {
		a.log.Info("topic file written", "file", f)
	}
	if err != nil {
		return fmt.Errorf("save corpus: %w", err)
	}
	return nil
}
