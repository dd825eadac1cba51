package doctext

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Extractor derives plain text from stored document bytes. Format support:
// pdf (embedded text layer), xlsx/xls (sheets rendered as tab-separated
// text), csv and txt (decoded directly). Image formats have no OCR backend
// here and yield an empty string, which the pipeline treats as a blank
// document.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".xlsx", ".xls":
		return extractWorkbook(data)
	case ".csv", ".txt":
		return extractText(data, filename)
	default:
		return "", nil
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text layer: %w", err)
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("collect pdf text: %w", err)
	}
	return buf.String(), nil
}

// extractWorkbook renders every sheet as tab-separated lines so the
// structuring model can read it as one tabular document.
func extractWorkbook(data []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	var parts []string
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		parts = append(parts, fmt.Sprintf("[Sheet: %s]", sheet))
		for _, row := range rows {
			if rowEmpty(row) {
				continue
			}
			parts = append(parts, strings.Join(row, "\t"))
		}
	}
	return strings.Join(parts, "\n"), nil
}

func extractText(data []byte, filename string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid text encoding: %s", filename)
	}
	return strings.TrimSpace(string(data)), nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
