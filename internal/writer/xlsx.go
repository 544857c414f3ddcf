package writer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

// Sheet names, one per statement section.
const (
	chargesSheet  = "Charges"
	paymentsSheet = "Payments"
)

var chargeColumns = []string{
	"trans_date", "post_date", "description", "category",
	"amount", "city", "province", "location", "natural_key",
}

var paymentColumns = []string{
	"trans_date", "post_date", "description", "amount", "natural_key",
}

// XLSXWriter writes normalized records to an Excel workbook, charges and
// payments on separate sheets.
type XLSXWriter struct{}

// WriteToFile writes the workbook to the given path.
func (w *XLSXWriter) WriteToFile(path string, stmt *models.Statement) error {
	f, err := w.build(stmt)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %q: %w", path, err)
	}
	return nil
}

// Write streams the workbook to the given writer.
func (w *XLSXWriter) Write(out io.Writer, stmt *models.Statement) error {
	f, err := w.build(stmt)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *XLSXWriter) build(stmt *models.Statement) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", chargesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(paymentsSheet); err != nil {
		return nil, err
	}

	var charges, payments []models.Transaction
	for _, txn := range stmt.Transactions {
		if txn.Section == models.SectionPayment {
			payments = append(payments, txn)
		} else {
			charges = append(charges, txn)
		}
	}

	err := writeSheet(f, chargesSheet, chargeColumns, charges, func(t models.Transaction) []any {
		return []any{
			t.TransDate.String(), t.PostDate.String(), t.Description, t.Category,
			t.Amount.InexactFloat64(), t.City, t.Province, t.Location, t.NaturalKey,
		}
	})
	if err != nil {
		return nil, err
	}
	err = writeSheet(f, paymentsSheet, paymentColumns, payments, func(t models.Transaction) []any {
		return []any{
			t.TransDate.String(), t.PostDate.String(), t.Description,
			t.Amount.InexactFloat64(), t.NaturalKey,
		}
	})
	if err != nil {
		return nil, err
	}

	// Widen the text-heavy columns
	_ = f.SetColWidth(chargesSheet, "A", "B", 12)
	_ = f.SetColWidth(chargesSheet, "C", "C", 40)
	_ = f.SetColWidth(chargesSheet, "D", "D", 32)
	_ = f.SetColWidth(chargesSheet, "H", "H", 18)
	_ = f.SetColWidth(chargesSheet, "I", "I", 20)
	_ = f.SetColWidth(paymentsSheet, "A", "B", 12)
	_ = f.SetColWidth(paymentsSheet, "C", "C", 40)
	_ = f.SetColWidth(paymentsSheet, "E", "E", 20)

	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, txns []models.Transaction, values func(models.Transaction) []any) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, txn := range txns {
		for c, v := range values(txn) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
