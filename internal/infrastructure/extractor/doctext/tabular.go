package doctext

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TabularReader decodes spreadsheet bytes into raw rows for the bulk-import
// path. Unlike Extract it is strict: a file that cannot be decoded is an
// error, because imported rows become approved documents.
type TabularReader struct{}

func NewTabularReader() *TabularReader {
	return &TabularReader{}
}

func (r *TabularReader) Rows(data []byte, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return csvRows(data)
	case ".xlsx", ".xls":
		return workbookRows(data)
	default:
		return nil, fmt.Errorf("not a spreadsheet format: %s", filename)
	}
}

func csvRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return rows, nil
}

// workbookRows reads only the first sheet: a bulk-import workbook is one
// dataset, not a multi-sheet report.
func workbookRows(data []byte) ([][]string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
