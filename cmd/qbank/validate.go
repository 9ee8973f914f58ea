package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/validate"
)

func newValidateCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the topic index and topic files for structural problems",
		Long: `Validate the topic index and every topic file against their JSON schemas and
check ids: duplicate topic ids, missing files, duplicate or unknown
subcategory ids, empty subcategories and duplicate question ids.

Exits non-zero when any error is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := validate.New()
			if err != nil {
				return err
			}
			rep, err := v.Run(a.settings.Root, a.settings.IndexPath, validate.Options{StrictDuplicates: strict})
			if err != nil {
				return err
			}
			printValidation(a, rep)
			if !rep.Passed() {
				return fmt.Errorf("taxonomy validation failed with %d error(s)", len(rep.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict-duplicates", false, "treat duplicate question ids as errors")
	return cmd
}

func printValidation(a *app, rep *validate.Report) {
	fmt.Fprintln(a.out, "Validation summary")
	for _, t := range rep.Topics {
		fmt.Fprintf(a.out, "- %s: subcategories=%d, questions=%s, files=[%s]\n",
			t.ID, t.Subcategories, a.printer.Sprintf("%d", t.Questions), strings.Join(t.Files, ", "))
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintf(a.out, "\n%s\n", color.YellowString("Warnings:"))
		for _, w := range rep.Warnings {
			fmt.Fprintf(a.out, "- %s\n", w)
		}
	}
	if len(rep.Errors) > 0 {
		fmt.Fprintf(a.out, "\n%s\n", color.RedString("Errors:"))
		for _, e := range rep.Errors {
			fmt.Fprintf(a.out, "- %s\n", e)
		}
		return
	}

	fmt.Fprintln(a.out)
	a.done("Taxonomy validation passed")
}
