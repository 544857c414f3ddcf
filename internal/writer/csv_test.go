package writer

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

func sampleStatement() *models.Statement {
	payment := models.Transaction{
		TransDate:     models.NewDate(2024, time.December, 20),
		PostDate:      models.NewDate(2024, time.December, 22),
		Description:   "PAYMENT THANK YOU/PAIEMENT MERCI",
		Amount:        decimal.NewFromFloat(-500),
		Section:       models.SectionPayment,
		Source:        "CIBC",
		StatementFile: "jan-2025.pdf",
	}
	payment.NaturalKey = models.NaturalKey(payment)

	charge := models.Transaction{
		TransDate:     models.NewDate(2025, time.January, 3),
		PostDate:      models.NewDate(2025, time.January, 5),
		Description:   "AMAZON.CA MARKETPLACE",
		Category:      "Retail and Grocery",
		Amount:        decimal.NewFromFloat(123.45),
		City:          "TORONTO",
		Province:      "ON",
		Location:      "Toronto ON",
		Section:       models.SectionCharge,
		Source:        "CIBC",
		StatementFile: "jan-2025.pdf",
	}
	charge.NaturalKey = models.NaturalKey(charge)

	return &models.Statement{
		Issuer:       models.IssuerCIBC,
		SourceFile:   "jan-2025.pdf",
		Period:       "December 15 to January 14, 2025",
		Year:         2024,
		Transactions: []models.Transaction{payment, charge},
		Stats:        models.ParseStats{RowsParsed: 2},
	}
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	if err := w.Write(&buf, sampleStatement()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	// Check metadata headers
	if !strings.Contains(output, "# Issuer") {
		t.Error("expected issuer metadata header")
	}
	if !strings.Contains(output, "# Statement Period") {
		t.Error("expected statement period metadata")
	}

	// Check column headers
	if !strings.Contains(output, "trans_date,post_date,section,description,category,amount") {
		t.Error("expected column headers")
	}

	// Check transaction data
	if !strings.Contains(output, "2025-01-03") {
		t.Error("expected charge transaction date")
	}
	if !strings.Contains(output, "AMAZON.CA MARKETPLACE") {
		t.Error("expected charge description")
	}
	if !strings.Contains(output, "-500.00") {
		t.Error("expected payment amount with two decimals")
	}

	reader := csv.NewReader(strings.NewReader(output))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	// 5 metadata lines + 1 header + 2 transactions = 8
	if len(records) != 8 {
		t.Errorf("expected 8 records, got %d", len(records))
	}
	for _, rec := range records[5:] {
		if len(rec) != len(csvColumns) {
			t.Errorf("expected %d fields, got %d: %v", len(csvColumns), len(rec), rec)
		}
	}
	// Payment row follows the header row.
	if got := records[6][5]; got != "-500.00" {
		t.Errorf("payment amount cell: got %q, want -500.00", got)
	}
	if got := records[7][6]; got != "TORONTO" {
		t.Errorf("charge city cell: got %q, want TORONTO", got)
	}
}

func TestCSVWriter_WriteNoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false}
	if err := w.Write(&buf, sampleStatement()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	// Should NOT have metadata
	if strings.Contains(output, "# Issuer") {
		t.Error("should not have issuer metadata when header=false")
	}

	// Should still have column headers
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if !strings.HasPrefix(lines[0], "trans_date,post_date,") {
		t.Errorf("first line should be column headers, got %q", lines[0])
	}
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d", len(lines))
	}
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := &CSVWriter{IncludeHeader: true}
	if err := w.WriteToFile(path, sampleStatement()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "natural_key") {
		t.Error("file should contain the column header row")
	}
}
