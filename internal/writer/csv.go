package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

// csvColumns is the fixed column order. It mirrors the storage schema so a
// CSV export can be diffed against a database dump.
var csvColumns = []string{
	"trans_date", "post_date", "section", "description", "category",
	"amount", "city", "province", "location", "source", "natural_key",
}

// CSVWriter writes normalized records to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the statement's records to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, stmt *models.Statement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, stmt)
}

// Write writes the statement's records in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, stmt *models.Statement) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	// Write metadata as comments (CSV header rows)
	if w.IncludeHeader {
		if stmt.Issuer != "" {
			writer.Write([]string{"# Issuer", string(stmt.Issuer)})
		}
		if stmt.SourceFile != "" {
			writer.Write([]string{"# Source File", stmt.SourceFile})
		}
		if stmt.Period != "" {
			writer.Write([]string{"# Statement Period", stmt.Period})
		}
		writer.Write([]string{"# Rows Parsed", strconv.Itoa(stmt.Stats.RowsParsed)})
		writer.Write([]string{"# Rows Skipped", strconv.Itoa(stmt.Stats.RowsSkipped)})
	}

	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range stmt.Transactions {
		row := []string{
			txn.TransDate.String(),
			txn.PostDate.String(),
			string(txn.Section),
			txn.Description,
			txn.Category,
			txn.Amount.StringFixed(2),
			txn.City,
			txn.Province,
			txn.Location,
			txn.Source,
			txn.NaturalKey,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return writer.Error()
}
