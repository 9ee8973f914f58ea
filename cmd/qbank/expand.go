package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/expand"
	"github.com/cognicore/qbank/pkg/qbank/internalerr"
	"github.com/cognicore/qbank/pkg/qbank/report"
)

const (
	expandJSON = "question_expansion_result.json"
	expandMD   = "question_expansion_result.md"
)

func newExpandCmd(a *app) *cobra.Command {
	var (
		jsonOut, mdOut string
		minimum        int
		apply          bool
	)

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Fill underfilled subcategories with generated draft questions",
		Long: `Append generated multiple-choice drafts to every subcategory holding fewer
than --min questions. Drafts are built from the focus themes of the rules
table, get ids <subcategory>_gen_NNN and carry source "generated_draft" so
they can be reviewed or filtered later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minimum <= 0 {
				return fmt.Errorf("%w: --min must be positive (got %d)", internalerr.ErrInvalidConfig, minimum)
			}
			jsonPath := a.docPath(jsonOut, expandJSON)
			mdPath := a.docPath(mdOut, expandMD)

			return a.runStage(cmd.Context(), "expand", apply, func(runID string) (stageOutcome, error) {
				c, err := a.loadCorpus()
				if err != nil {
					return stageOutcome{}, err
				}

				a.dryRunBanner(apply)
				res, err := expand.NewExpander(a.comp.Rules).Run(c, expand.Options{Min: minimum, Apply: apply})
				if err != nil {
					return stageOutcome{}, err
				}
				res.RunID = runID
				if err := a.save(c, apply); err != nil {
					return stageOutcome{}, err
				}
				if err := a.writeArtifacts(jsonPath, res, mdPath, report.ExpandMarkdown(res)); err != nil {
					return stageOutcome{}, err
				}

				a.count("Subcategories expanded", res.Summary.SubcategoriesExpanded)
				a.count("Questions added", res.Summary.QuestionsAdded)
				a.count("Files changed", res.Summary.FilesChanged)
				a.done("Wrote %s", a.rel(jsonPath))
				return stageOutcome{Summary: res.Summary, Artifact: jsonPath}, nil
			})
		},
	}

	cmd.Flags().IntVar(&minimum, "min", expand.DefaultMin, "questions each subcategory is filled up to")
	cmd.Flags().StringVar(&jsonOut, "json-out", "", "result JSON path (default <docs>/"+expandJSON+")")
	cmd.Flags().StringVar(&mdOut, "md-out", "", "result Markdown path (default <docs>/"+expandMD+")")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the changed topic files")
	return cmd
}
