package reports

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/mmdatafocus/boletos_backend/utils"
)

// Page geometry in points (Letter, 612x792).
const (
	reportStartX          = 50.0
	reportTopMargin       = 50.0
	reportRowHeight       = 15.0
	reportPageHeightLimit = 700.0
	reportPaymentLineMax  = 40
)

var (
	reportHeaders      = []string{"ID", "Nome do Sacado", "Lote", "Valor (R$)", "Linha Digitável"}
	reportColumnWidths = []float64{40, 150, 70, 80, 190}
	reportColumnAligns = []string{"C", "L", "C", "R", "L"}
)

func reportTableWidth() float64 {
	var w float64
	for _, cw := range reportColumnWidths {
		w += cw
	}
	return w
}

// reportRowCells formats one table row: the lot column falls back to the raw
// lot id, amounts get two decimals, long payment lines are cut at 40 chars.
func reportRowCells(r *BillingRecordView) []string {
	lot := strconv.Itoa(r.LotId)
	if r.LotName != nil && *r.LotName != "" {
		lot = *r.LotName
	}
	return []string{
		strconv.Itoa(r.ID),
		r.PayerName,
		lot,
		utils.FormatCurrency(r.Amount),
		utils.TruncateWithEllipsis(r.PaymentLine, reportPaymentLineMax),
	}
}

// RenderBillingReportPDF renders the fixed-column billing report and returns
// the document bytes.
func RenderBillingReportPDF(records []*BillingRecordView, filter BillingFilter, title string, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(reportStartX, reportTopMargin, reportStartX)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 20, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	if lines := filter.describe(); len(lines) > 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 14, tr("Filtros aplicados:"), "", 1, "L", false, 0, "")
		for _, line := range lines {
			pdf.CellFormat(0, 14, tr(line), "", 1, "L", false, 0, "")
		}
		pdf.Ln(8)
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 14, tr("Data do relatório: "+generatedAt.Format("02/01/2006 15:04:05")), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	y := drawReportHeader(pdf, tr, pdf.GetY())

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range records {
		if y+reportRowHeight > reportPageHeightLimit {
			pdf.AddPage()
			y = drawReportHeader(pdf, tr, reportTopMargin)
			pdf.SetFont("Helvetica", "", 9)
		}
		x := reportStartX
		for i, cell := range reportRowCells(r) {
			pdf.SetXY(x, y)
			pdf.CellFormat(reportColumnWidths[i], reportRowHeight, tr(cell), "", 0, reportColumnAligns[i], false, 0, "")
			x += reportColumnWidths[i]
		}
		y += reportRowHeight
	}

	if y+3*reportRowHeight > reportPageHeightLimit {
		pdf.AddPage()
		y = reportTopMargin
	}
	pdf.Line(reportStartX, y+2, reportStartX+reportTableWidth(), y+2)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(reportStartX, y+reportRowHeight)
	pdf.CellFormat(reportTableWidth(), 14, fmt.Sprintf("Total de boletos: %d", len(records)), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, utils.IOError("render billing report", err)
	}
	return buf.Bytes(), nil
}

// drawReportHeader draws the column titles at y and returns the first row's y.
func drawReportHeader(pdf *fpdf.Fpdf, tr func(string) string, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 10)
	x := reportStartX
	for i, h := range reportHeaders {
		pdf.SetXY(x, y)
		pdf.CellFormat(reportColumnWidths[i], reportRowHeight, tr(h), "", 0, reportColumnAligns[i], false, 0, "")
		x += reportColumnWidths[i]
	}
	lineY := y + reportRowHeight + 2
	pdf.Line(reportStartX, lineY, reportStartX+reportTableWidth(), lineY)
	return lineY + 5
}
