package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/qbank/pkg/qbank/jsonio"
	"github.com/cognicore/qbank/pkg/qbank/report"
)

func newExportCmd(a *app) *cobra.Command {
	var queueIn, xlsxOut, htmlOut string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the review queue as a spreadsheet and an HTML page",
		Long: `Write the review queue as XLSX and HTML for offline review.

Fill in the recommended_action column of the spreadsheet and feed it back
with "qbank review --from-xlsx".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readQueue(a.docPath(queueIn, queueJSON))
			if err != nil {
				return err
			}

			xlsxPath := a.docPath(xlsxOut, "relevance_review_queue.xlsx")
			if err := report.WriteQueueXLSX(xlsxPath, q); err != nil {
				return fmt.Errorf("write %s: %w", xlsxPath, err)
			}

			var buf bytes.Buffer
			if err := report.RenderQueueHTML(&buf, q); err != nil {
				return err
			}
			htmlPath := a.docPath(htmlOut, "relevance_review_queue.html")
			if err := jsonio.WriteBytes(htmlPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write %s: %w", htmlPath, err)
			}

			a.log.Info("queue exported", "items", q.Count, "xlsx", a.rel(xlsxPath), "html", a.rel(htmlPath))
			a.count("Queue items", q.Count)
			a.done("Wrote %s", a.rel(xlsxPath))
			a.done("Wrote %s", a.rel(htmlPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&queueIn, "queue", "", "review queue JSON (default <docs>/"+queueJSON+")")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "spreadsheet path (default <docs>/relevance_review_queue.xlsx)")
	cmd.Flags().StringVar(&htmlOut, "html", "", "HTML path (default <docs>/relevance_review_queue.html)")
	return cmd
}
