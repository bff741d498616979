package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// Column names recognized in statement headers. Matching is case-sensitive.
const (
	ColumnDate     = "date"
	ColumnMerchant = "merchant"
	ColumnAmount   = "amount"
	ColumnCurrency = "currency"
)

var requiredColumns = []string{ColumnDate, ColumnMerchant, ColumnAmount}

// columnIndex maps header names to positions.
type columnIndex struct {
	names []string
	pos   map[string]int
}

func newColumnIndex(header []string) (*columnIndex, error) {
	idx := &columnIndex{pos: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		idx.names = append(idx.names, name)
		if _, dup := idx.pos[name]; dup && name != "" {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		idx.pos[name] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx.pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing required column(s): %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c *columnIndex) get(row []string, name string) string {
	i, ok := c.pos[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// record converts a row. With strict set, a row whose width differs from
// the header is reported as a row error; otherwise missing trailing cells
// read as empty.
func (c *columnIndex) record(row []string, strict bool) RawRecord {
	rec := RawRecord{
		Date:     c.get(row, ColumnDate),
		Merchant: c.get(row, ColumnMerchant),
		Amount:   c.get(row, ColumnAmount),
		Currency: c.get(row, ColumnCurrency),
	}

	if (strict && len(row) != len(c.names)) || len(row) > len(c.names) {
		rec.Err = common.NewValidationError("row", "", fmt.Sprintf("expected %d fields, got %d", len(c.names), len(row)))
		return rec
	}

	for i, name := range c.names {
		switch name {
		case ColumnDate, ColumnMerchant, ColumnAmount, ColumnCurrency, "":
			continue
		}
		if i < len(row) && strings.TrimSpace(row[i]) != "" {
			if rec.Metadata == nil {
				rec.Metadata = make(model.Metadata)
			}
			rec.Metadata[name] = strings.TrimSpace(row[i])
		}
	}
	return rec
}

// ReadCSV reads a statement with a header row naming at least the date,
// merchant and amount columns. Unknown columns are kept as metadata.
// A malformed data row becomes a record carrying Err; a missing or
// incomplete header fails the whole file.
func ReadCSV(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	lines := strings.Split(string(data), "\n")

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty CSV file: %w", common.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx, err := newColumnIndex(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	var records []RawRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			rec := idx.record(rawFields(lines, parseErr.StartLine), false)
			rec.Err = common.NewValidationError("row", "", parseErr.Err.Error())
			records = append(records, rec)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		records = append(records, idx.record(row, true))
	}

	return records, nil
}

// rawFields splits the 1-based line naively on commas so a row the CSV
// parser rejected still yields a best-effort merchant name.
func rawFields(lines []string, line int) []string {
	if line < 1 || line > len(lines) {
		return nil
	}
	return strings.Split(strings.TrimSuffix(lines[line-1], "\r"), ",")
}
