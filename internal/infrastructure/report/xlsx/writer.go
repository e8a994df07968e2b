package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

const sheetName = "Invoices"

var headers = []string{
	"Created",
	"Invoice ID",
	"File",
	"Status",
	"Vendor",
	"Vendor Confidence %",
	"Total",
	"Total Source",
	"Selection Confidence",
	"Reconciliation",
	"Warnings",
}

// Writer renders analyzed invoices into a single-sheet workbook.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteInvoices(out io.Writer, docs []domain.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx rename sheet: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, doc := range docs {
		row := i + 2
		for col, v := range invoiceRow(doc) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 20)
	_ = f.SetColWidth(sheetName, "B", "C", 38)
	_ = f.SetColWidth(sheetName, "D", "F", 14)
	_ = f.SetColWidth(sheetName, "G", "I", 14)
	_ = f.SetColWidth(sheetName, "J", "J", 20)
	_ = f.SetColWidth(sheetName, "K", "K", 48)
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("xlsx freeze header: %w", err)
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func invoiceRow(doc domain.Document) []any {
	vendorName := doc.VendorKey
	vendorConfidence := 0
	reconciliation := ""
	warnings := ""
	if a := doc.Analysis; a != nil {
		vendorName = a.Vendor.VendorName
		vendorConfidence = a.Vendor.ConfidencePercent
		reconciliation = string(a.Reconciliation.Reason)
		warnings = strings.Join(a.Totals.Warnings, "; ")
	}
	return []any{
		doc.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		doc.ID,
		doc.Filename,
		string(doc.Status),
		vendorName,
		vendorConfidence,
		centsToAmount(doc.TotalCents),
		string(doc.TotalSource),
		doc.Confidence,
		reconciliation,
		warnings,
	}
}

// centsToAmount keeps the value numeric in the sheet without a float
// round trip through cents/100.
func centsToAmount(c domain.Cents) float64 {
	f, _ := decimal.New(int64(c), -2).Float64()
	return f
}
