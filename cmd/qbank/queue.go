package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/audit"
	"github.com/cognicore/qbank/pkg/qbank/internalerr"
	"github.com/cognicore/qbank/pkg/qbank/jsonio"
	"github.com/cognicore/qbank/pkg/qbank/report"
	"github.com/cognicore/qbank/pkg/qbank/review"
)

const (
	queueJSON = "relevance_review_queue.json"
	queueMD   = "relevance_review_queue.md"
)

func newQueueCmd(a *app) *cobra.Command {
	var auditIn, jsonOut, mdOut string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Build the high-confidence relevance review queue from an audit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auditPath := a.docPath(auditIn, auditJSON)
			jsonPath := a.docPath(jsonOut, queueJSON)
			mdPath := a.docPath(mdOut, queueMD)

			return a.runStage(cmd.Context(), "queue", false, func(runID string) (stageOutcome, error) {
				r, err := readAudit(auditPath)
				if err != nil {
					return stageOutcome{}, err
				}

				q := review.Build(r.RelevanceFlags)
				q.RunID = runID
				if err := a.writeArtifacts(jsonPath, q, mdPath, report.QueueMarkdown(q)); err != nil {
					return stageOutcome{}, err
				}

				a.count("Relevance flags in audit", len(r.RelevanceFlags))
				a.count("High-confidence review items", q.Count)
				a.done("Wrote %s", a.rel(jsonPath))
				return stageOutcome{Summary: map[string]int{"count": q.Count}, Artifact: jsonPath}, nil
			})
		},
	}

	cmd.Flags().StringVar(&auditIn, "audit-json", "", "audit JSON to read (default <docs>/"+auditJSON+")")
	cmd.Flags().StringVar(&jsonOut, "json-out", "", "queue JSON path (default <docs>/"+queueJSON+")")
	cmd.Flags().StringVar(&mdOut, "md-out", "", "queue Markdown path (default <docs>/"+queueMD+")")
	return cmd
}

func readAudit(path string) (*audit.Report, error) {
	var r audit.Report
	if err := jsonio.ReadFile(path, &r); err != nil {
		return nil, fmt.Errorf("%w: audit artifact: %v", internalerr.ErrInvalidInput, err)
	}
	return &r, nil
}

func readQueue(path string) (*review.Queue, error) {
	var q review.Queue
	if err := jsonio.ReadFile(path, &q); err != nil {
		return nil, fmt.Errorf("%w: review queue: %v", internalerr.ErrInvalidInput, err)
	}
	if q.Items == nil {
		q.Items = []review.Item{}
	}
	q.Count = len(q.Items)
	return &q, nil
}
