package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
	"github.com/cognicore/qbank/pkg/qbank/jsonio"
	"github.com/cognicore/qbank/pkg/qbank/review"
)

// QueueSheet is the worksheet holding the review queue.
const QueueSheet = "Queue"

var queueColumns = []string{
	"question_id",
	"source_topic",
	"source_subcategory",
	"source_file",
	"suggested_target_topic",
	"own_topic",
	"own_subcategory",
	"best_other",
	"reasons",
	"question",
	"recommended_action",
}

var columnWidths = map[string]float64{
	"question_id":            16,
	"source_topic":           24,
	"source_subcategory":     28,
	"source_file":            28,
	"suggested_target_topic": 24,
	"reasons":                36,
	"question":               80,
	"recommended_action":     20,
}

// WriteQueueXLSX writes the queue as a spreadsheet with a header row, frozen
// panes, an auto filter and a drop-down on recommended_action so reviewers
// can record decisions offline.
func WriteQueueXLSX(path string, q *review.Queue) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", QueueSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(queueColumns))
	for i, c := range queueColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(QueueSheet, "A1", &header); err != nil {
		return err
	}

	for i, it := range q.Items {
		row := []interface{}{
			it.QuestionID,
			it.SourceTopic,
			it.SourceSubcategory,
			it.SourceFile,
			it.SuggestedTargetTopic,
			it.Scores.OwnTopic,
			it.Scores.OwnSubcategory,
			it.Scores.BestOther,
			strings.Join(it.Reasons, ", "),
			it.Question,
			it.RecommendedAction,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(QueueSheet, cell, &row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(queueColumns))
	if err != nil {
		return err
	}
	lastRow := len(q.Items) + 1

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(QueueSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, c := range queueColumns {
		width, ok := columnWidths[c]
		if !ok {
			continue
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(QueueSheet, col, col, width); err != nil {
			return err
		}
	}

	if err := f.SetPanes(QueueSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.AutoFilter(QueueSheet, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil); err != nil {
		return err
	}

	if len(q.Items) > 0 {
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", lastCol, lastCol, lastRow)
		if err := dv.SetDropList([]string{review.ActionManualReview, review.ActionApproved, review.ActionRejected}); err != nil {
			return err
		}
		if err := f.AddDataValidation(QueueSheet, dv); err != nil {
			return err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	return jsonio.WriteBytes(path, buf.Bytes())
}

// ImportDecisions reads a spreadsheet written by WriteQueueXLSX and copies
// the recommended_action of every row back onto the matching queue item.
// Rows are matched on question id, source topic and source subcategory;
// unknown rows and blank decisions are ignored.
func ImportDecisions(r io.Reader, q *review.Queue) (review.Tally, error) {
	var tally review.Tally

	f, err := excelize.OpenReader(r)
	if err != nil {
		return tally, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(QueueSheet)
	if err != nil {
		return tally, fmt.Errorf("read sheet %s: %w", QueueSheet, err)
	}
	if len(rows) == 0 {
		return tally, fmt.Errorf("%w: sheet %s is empty", internalerr.ErrInvalidInput, QueueSheet)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"question_id", "source_topic", "source_subcategory", "recommended_action"} {
		if _, ok := col[name]; !ok {
			return tally, fmt.Errorf("%w: sheet %s has no %s column", internalerr.ErrInvalidInput, QueueSheet, name)
		}
	}

	type key struct{ id, topic, sub string }
	items := make(map[key]*review.Item, len(q.Items))
	for i := range q.Items {
		it := &q.Items[i]
		items[key{it.QuestionID, it.SourceTopic, it.SourceSubcategory}] = it
	}

	cell := func(row []string, name string) string {
		if i := col[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	for n, row := range rows[1:] {
		it, ok := items[key{cell(row, "question_id"), cell(row, "source_topic"), cell(row, "source_subcategory")}]
		if !ok {
			continue
		}
		switch action := cell(row, "recommended_action"); action {
		case "":
			continue
		case review.ActionApproved:
			tally.Approved++
			it.RecommendedAction = action
		case review.ActionRejected:
			tally.Rejected++
			it.RecommendedAction = action
		case review.ActionManualReview:
			tally.Skipped++
			it.RecommendedAction = action
		default:
			return tally, fmt.Errorf("%w: row %d: unknown action %q", internalerr.ErrInvalidInput, n+2, action)
		}
	}
	return tally, nil
}
