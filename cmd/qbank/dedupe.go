package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/dedupe"
	"github.com/cognicore/qbank/pkg/qbank/report"
)

const (
	safeJSON      = "question_cleanup_proposed_removals.json"
	safeMD        = "question_cleanup_proposed_removals.md"
	canonicalJSON = "cross_topic_dedupe_proposed_removals.json"
	canonicalMD   = "cross_topic_dedupe_proposed_removals.md"
)

func newDedupeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Duplicate question cleanup",
		Long:  `Commands that remove duplicate questions from the topic files.`,
	}
	cmd.AddCommand(newDedupeSafeCmd(a), newDedupeCanonicalCmd(a))
	return cmd
}

func newDedupeSafeCmd(a *app) *cobra.Command {
	var (
		jsonOut, mdOut string
		apply          bool
	)

	cmd := &cobra.Command{
		Use:   "safe",
		Short: "Remove exact duplicates within a subcategory",
		Long: `Keep the first question of every normalized text within each subcategory and
remove the rest. Duplicates spanning topics are listed for manual review only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonPath := a.docPath(jsonOut, safeJSON)
			mdPath := a.docPath(mdOut, safeMD)

			return a.runStage(cmd.Context(), "dedupe-safe", apply, func(runID string) (stageOutcome, error) {
				c, err := a.loadCorpus()
				if err != nil {
					return stageOutcome{}, err
				}

				a.dryRunBanner(apply)
				res := dedupe.Safe(c, apply)
				res.RunID = runID
				if err := a.save(c, apply); err != nil {
					return stageOutcome{}, err
				}
				if err := a.writeArtifacts(jsonPath, res, mdPath, report.SafeMarkdown(res)); err != nil {
					return stageOutcome{}, err
				}

				a.count("Duplicates removed", res.Summary.ToRemoveCount)
				a.count("Files changed", res.Summary.FilesChanged)
				a.count("Cross-topic groups for review", res.Summary.CrossTopicGroups)
				a.done("Wrote %s", a.rel(jsonPath))
				return stageOutcome{Summary: res.Summary, Artifact: jsonPath}, nil
			})
		},
	}

	cmd.Flags().StringVar(&jsonOut, "json-out", "", "proposal JSON path (default <docs>/"+safeJSON+")")
	cmd.Flags().StringVar(&mdOut, "md-out", "", "proposal Markdown path (default <docs>/"+safeMD+")")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the changed topic files")
	return cmd
}

func newDedupeCanonicalCmd(a *app) *cobra.Command {
	var (
		auditIn, jsonOut, mdOut string
		apply                   bool
	)

	cmd := &cobra.Command{
		Use:   "canonical",
		Short: "Keep cross-topic duplicates only under their canonical topic",
		Long: `For every exact duplicate text group of the audit, infer the topic the
question belongs to from the canonical hint rules and remove the copies
filed under other topics. Groups with no inferred topic, or whose inferred
topic holds no copy, are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auditPath := a.docPath(auditIn, auditJSON)
			jsonPath := a.docPath(jsonOut, canonicalJSON)
			mdPath := a.docPath(mdOut, canonicalMD)

			return a.runStage(cmd.Context(), "dedupe-canonical", apply, func(runID string) (stageOutcome, error) {
				r, err := readAudit(auditPath)
				if err != nil {
					return stageOutcome{}, err
				}
				c, err := a.loadCorpus()
				if err != nil {
					return stageOutcome{}, err
				}

				a.dryRunBanner(apply)
				res := dedupe.Canonical(c, r, a.comp.Taxonomy, apply)
				res.RunID = runID
				if err := a.save(c, apply); err != nil {
					return stageOutcome{}, err
				}
				if err := a.writeArtifacts(jsonPath, res, mdPath, report.CanonicalMarkdown(res)); err != nil {
					return stageOutcome{}, err
				}

				a.count("Proposed removals", res.Summary.ToRemoveCount)
				a.count("Files changed", res.Summary.FilesChanged)
				a.done("Wrote %s", a.rel(jsonPath))
				return stageOutcome{Summary: res.Summary, Artifact: jsonPath}, nil
			})
		},
	}

	cmd.Flags().StringVar(&auditIn, "audit-json", "", "audit JSON to read (default <docs>/"+auditJSON+")")
	cmd.Flags().StringVar(&jsonOut, "json-out", "", "proposal JSON path (default <docs>/"+canonicalJSON+")")
	cmd.Flags().StringVar(&mdOut, "md-out", "", "proposal Markdown path (default <docs>/"+canonicalMD+")")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the changed topic files")
	return cmd
}
