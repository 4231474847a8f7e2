package report

import (
	"bytes"
	"context"

	"github.com/jung-kurt/gofpdf"

	"github.com/odyssey-erp/tbview/internal/trialbalance"
)

var columnWidths = []float64{70, 25, 30, 40, 40, 42}

// LocalExporter draws the trial balance in-process with gofpdf.
type LocalExporter struct{}

// NewLocalExporter returns an exporter that needs no external service.
func NewLocalExporter() *LocalExporter {
	return &LocalExporter{}
}

// ExportTrialBalance produces a landscape A4 PDF for vm.
func (LocalExporter) ExportTrialBalance(ctx context.Context, vm trialbalance.ViewModel) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(vm.Title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(vm.Title), "", 1, "L", false, 0, "")

	if vm.Banner.Balanced {
		pdf.SetFillColor(232, 245, 233)
		pdf.SetTextColor(27, 94, 32)
	} else {
		pdf.SetFillColor(255, 235, 238)
		pdf.SetTextColor(183, 28, 28)
	}
	pdf.SetFont("Arial", "B", 11)
	banner := vm.Banner.Label + "    Total Debit: " + vm.Banner.TotalDebit + "    Total Credit: " + vm.Banner.TotalCredit
	pdf.CellFormat(0, 9, tr(banner), "", 1, "L", true, 0, "")
	pdf.Ln(3)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 10)
	headers := []string{"Account Name", "Code", "Type", "Debit", "Credit", "Net Balance"}
	for i, h := range headers {
		pdf.CellFormat(columnWidths[i], 8, h, "B", 0, align(i), false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(245, 247, 250)
	for _, row := range vm.Rows {
		cells := []string{row.Name, row.Code, row.Type, row.Debit, row.Credit, row.Balance}
		for i, c := range cells {
			pdf.CellFormat(columnWidths[i], 7, tr(c), "", 0, align(i), row.Striped, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func align(col int) string {
	if col >= 3 {
		return "R"
	}
	return "L"
}
