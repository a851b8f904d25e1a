package summarize

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"newsdigest/constants"
	"newsdigest/internal/artifacts"
)

// writeXLSX renders the summary records as a workbook next to the plain
// text outputs, for anyone who wants the batch in a spreadsheet.
func writeXLSX(store *artifacts.Store, records []Record) error {
	f := excelize.NewFile()
	const sheet = "Summaries"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Document ID", "Date", "Word Count", "Summary"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, rec := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, rec.ID)
		if rec.DateString != nil {
			write(2, *rec.DateString)
		} else {
			write(2, "")
		}
		write(3, rec.WordCount)
		write(4, rec.Summary)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("serialize workbook: %w", err)
	}
	return store.Write(constants.ProcessedDir, constants.XLSXFile, buf.Bytes())
}
