package parser

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVRowsPerPage is how many data rows go on one page.
const CSVRowsPerPage = 20

// CSVParser handles CSV files. The header row is repeated on every page
// as the table header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (Source, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return newMemorySource(), nil
	}

	headers := records[0]
	dataRows := records[1:]
	if len(dataRows) == 0 {
		b := newPageBuilder()
		b.table([][]string{headers})
		return newMemorySource(b), nil
	}

	var pages []*pageBuilder
	for i := 0; i < len(dataRows); i += CSVRowsPerPage {
		end := min(i+CSVRowsPerPage, len(dataRows))
		b := newPageBuilder()
		// 1-indexed, skip header
		b.paragraph(fmt.Sprintf("Rows %d-%d", i+2, end+1))
		rows := make([][]string, 0, end-i+1)
		rows = append(rows, headers)
		rows = append(rows, dataRows[i:end]...)
		b.table(rows)
		pages = append(pages, b)
	}
	return newMemorySource(pages...), nil
}
