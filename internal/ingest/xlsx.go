package ingest

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/Jaikumar96/fincategorizer/internal/common"
)

// ReadXLSX reads the first worksheet of a spreadsheet laid out like the CSV
// format. Date cells stored as spreadsheet serial numbers are converted.
func ReadXLSX(r io.Reader) ([]RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets: %w", common.ErrValidation)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty spreadsheet: %w", common.ErrValidation)
	}

	idx, err := newColumnIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	records := make([]RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := idx.record(row, false)
		rec.Date = serialToDate(rec.Date)
		records = append(records, rec)
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// serialToDate converts a spreadsheet date serial ("45672") to YYYY-MM-DD,
// leaving any other text untouched.
func serialToDate(s string) string {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
