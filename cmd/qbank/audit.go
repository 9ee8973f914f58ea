package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/audit"
	"github.com/cognicore/qbank/pkg/qbank/report"
)

const (
	auditJSON = "question_quality_audit.json"
	auditMD   = "question_quality_audit.md"
)

func newAuditCmd(a *app) *cobra.Command {
	var jsonOut, mdOut string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report duplicate ids, duplicate text, near duplicates and relevance flags",
		Long: `Scan every question in the corpus and write the quality audit.

The audit never modifies topic files. Its JSON artifact feeds "qbank queue"
and "qbank dedupe canonical".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("near-threshold") {
				a.settings.NearThreshold, _ = cmd.Flags().GetFloat64("near-threshold")
				if err := a.settings.Validate(); err != nil {
					return err
				}
			}

			jsonPath := a.docPath(jsonOut, auditJSON)
			mdPath := a.docPath(mdOut, auditMD)

			return a.runStage(cmd.Context(), "audit", false, func(runID string) (stageOutcome, error) {
				c, err := a.loadCorpus()
				if err != nil {
					return stageOutcome{}, err
				}

				auditor := audit.NewAuditor(a.comp.Tokenizer, a.comp.Taxonomy)
				r := auditor.Run(c, audit.Options{NearThreshold: a.settings.NearThreshold})
				r.RunID = runID
				r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

				if err := a.writeArtifacts(jsonPath, r, mdPath, report.AuditMarkdown(r)); err != nil {
					return stageOutcome{}, err
				}

				s := r.Summary
				a.count("Total questions scanned", s.TotalQuestions)
				a.count("Duplicate question IDs", s.DuplicateIDs)
				a.count("Exact duplicate text groups", s.ExactDuplicateTextGroups)
				a.count("Near duplicate pairs", s.NearDuplicatePairs)
				a.count("Relevance flags", s.RelevanceFlags)
				if s.Anomalies > 0 || s.SkippedTopics > 0 {
					a.count("Structural anomalies", s.Anomalies)
					a.count("Skipped topics", s.SkippedTopics)
				}
				a.done("Wrote %s", a.rel(jsonPath))
				return stageOutcome{Summary: s, Artifact: jsonPath}, nil
			})
		},
	}

	cmd.Flags().Float64("near-threshold", 0.92, "minimum similarity ratio for near duplicates")
	cmd.Flags().StringVar(&jsonOut, "json-out", "", "audit JSON path (default <docs>/"+auditJSON+")")
	cmd.Flags().StringVar(&mdOut, "md-out", "", "audit Markdown path (default <docs>/"+auditMD+")")
	return cmd
}
