package models

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/mmdatafocus/boletos_backend/utils"
	"gorm.io/gorm"
)

// CreateSampleSourceDocument renders a multi-page source document with one
// page per active record, in the order the splitter expects. It exists to
// exercise the split end to end without a bank-issued file.
func CreateSampleSourceDocument(ctx context.Context, db *gorm.DB, outputPath string) (string, int, error) {
	records, err := ActiveRecordsInStableOrder(ctx, db)
	if err != nil {
		return "", 0, err
	}
	if len(records) == 0 {
		return "", 0, utils.NotFoundf("no active billing records to render")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", 0, utils.IOError("create sample dir", err)
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, record := range records {
		renderSamplePage(pdf, tr, record)
	}
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return "", 0, utils.IOError("write sample document", err)
	}
	return outputPath, len(records), nil
}

func renderSamplePage(pdf *fpdf.Fpdf, tr func(string) string, record *BillingRecord) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(50, 60)
	pdf.CellFormat(500, 30, tr("Boleto de Pagamento"), "", 1, "C", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(50, 150, 500, 300, "D")

	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(70, 190, tr("Sacado: "+record.PayerName))

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(70, 280, tr("Linha Digitável:"))
	pdf.Text(70, 300, record.PaymentLine)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(70, 360, "Valor: R$ "+utils.FormatCurrency(record.Amount))

	// stand-in for the barcode
	pdf.SetFillColor(0, 0, 0)
	pdf.Rect(70, 400, 460, 30, "F")
}
