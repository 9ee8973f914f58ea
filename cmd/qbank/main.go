// Command qbank maintains the question bank: it audits the corpus, builds
// and reviews the relevance queue, moves misfiled questions and removes
// duplicates.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "qbank",
		Short: "Question bank maintenance pipeline",
		Long: `Maintenance passes over the question bank topic files.

Typical cycle:
  qbank validate                 # check the topic index and files
  qbank audit                    # duplicates and relevance flags
  qbank queue                    # high-confidence relevance review queue
  qbank review                   # optional: approve/reject queue items
  qbank batch --apply            # move or drop queued questions
  qbank reconcile --apply        # remove source copies left behind
  qbank dedupe safe --apply      # drop same-subcategory duplicates
  qbank expand --apply           # optional: fill small subcategories with drafts

Every stage is a dry run unless --apply is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("root", "", "repository root (env QBANK_ROOT, default .)")
	pf.String("index", "", "topic index path relative to root (env QBANK_INDEX, default data/topics.json)")
	pf.String("docs-dir", "", "artifact directory relative to root (env QBANK_DOCS_DIR, default docs)")
	pf.String("rules", "", "rules.yaml with stopwords, hints, signals and fallbacks (env QBANK_RULES)")
	pf.String("stoplist", "", "stoplist.yaml adjusting the stopwords (env QBANK_STOPLIST)")
	pf.String("ledger", "", "run ledger database relative to root (env QBANK_LEDGER)")
	pf.String("log-mode", "", "log format: dev or prod (env QBANK_LOG_MODE)")

	cmd.AddCommand(
		newValidateCmd(a),
		newAuditCmd(a),
		newQueueCmd(a),
		newReviewCmd(a),
		newExportCmd(a),
		newBatchCmd(a),
		newReconcileCmd(a),
		newDedupeCmd(a),
		newExpandCmd(a),
		newHistoryCmd(a),
	)
	return cmd
}
