package writer

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

func TestXLSXWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &XLSXWriter{}
	if err := w.Write(&buf, sampleStatement()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a valid workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if !reflect.DeepEqual(sheets, []string{"Charges", "Payments"}) {
		t.Fatalf("sheets: got %v", sheets)
	}

	cells := []struct {
		sheet string
		cell  string
		want  string
	}{
		{"Charges", "A1", "trans_date"},
		{"Charges", "I1", "natural_key"},
		{"Charges", "A2", "2025-01-03"},
		{"Charges", "C2", "AMAZON.CA MARKETPLACE"},
		{"Charges", "D2", "Retail and Grocery"},
		{"Charges", "E2", "123.45"},
		{"Charges", "F2", "TORONTO"},
		{"Payments", "A1", "trans_date"},
		{"Payments", "A2", "2024-12-20"},
		{"Payments", "C2", "PAYMENT THANK YOU/PAIEMENT MERCI"},
		{"Payments", "D2", "-500"},
	}
	for _, tt := range cells {
		got, err := f.GetCellValue(tt.sheet, tt.cell)
		if err != nil {
			t.Fatalf("%s!%s: unexpected error: %v", tt.sheet, tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s!%s: got %q, want %q", tt.sheet, tt.cell, got, tt.want)
		}
	}
}

func TestXLSXWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := &XLSXWriter{}
	if err := w.WriteToFile(path, sampleStatement()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Charges", "C2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "AMAZON.CA MARKETPLACE" {
		t.Errorf("got %q, want AMAZON.CA MARKETPLACE", got)
	}
}

func TestXLSXWriter_EmptyStatement(t *testing.T) {
	var buf bytes.Buffer
	w := &XLSXWriter{}
	if err := w.Write(&buf, &models.Statement{Issuer: models.IssuerCIBC}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	// Header rows survive even with no records.
	got, err := f.GetCellValue("Payments", "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "trans_date" {
		t.Errorf("got %q, want trans_date", got)
	}
}
