package doctext

import (
	"context"
	"testing"
)

func TestExtractDecodesCSVAsText(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract(context.Background(), []byte("vendor,total\nAcme,100\n"), "data.csv")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "vendor,total\nAcme,100" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractUnsupportedFormatYieldsEmpty(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "scan.png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text for image, got %q", text)
	}
}

func TestExtractRejectsBinaryText(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract(context.Background(), []byte{0xff, 0xfe, 0x00}, "broken.txt"); err == nil {
		t.Fatalf("expected error for invalid encoding")
	}
}

func TestExtractCorruptPDFErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract(context.Background(), []byte("not a pdf"), "inv.pdf"); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestRowsDecodesCSVWithRaggedRows(t *testing.T) {
	r := NewTabularReader()
	rows, err := r.Rows([]byte("vendor,total\nAcme,100\nGlobex,200,extra\n"), "data.csv")
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "Acme" || len(rows[2]) != 3 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRowsRejectsNonSpreadsheet(t *testing.T) {
	r := NewTabularReader()
	if _, err := r.Rows([]byte("text"), "inv.pdf"); err == nil {
		t.Fatalf("expected error for non-spreadsheet file")
	}
}
