package reports

import (
	"strconv"

	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/xuri/excelize/v2"
)

const billingSheet = "Boletos"

// RenderBillingReportXLSX exports the same columns as the PDF report, with
// amounts kept numeric and the full payment line.
func RenderBillingReportXLSX(records []*BillingRecordView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", billingSheet); err != nil {
		return nil, utils.IOError("rename sheet", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, utils.IOError("create amount style", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, utils.IOError("create header style", err)
	}

	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(billingSheet, cell, h)
	}
	f.SetCellStyle(billingSheet, "A1", "E1", headerStyle)

	rowNo := 2
	for _, r := range records {
		lot := strconv.Itoa(r.LotId)
		if r.LotName != nil && *r.LotName != "" {
			lot = *r.LotName
		}
		f.SetCellValue(billingSheet, "A"+strconv.Itoa(rowNo), r.ID)
		f.SetCellValue(billingSheet, "B"+strconv.Itoa(rowNo), r.PayerName)
		f.SetCellValue(billingSheet, "C"+strconv.Itoa(rowNo), lot)
		f.SetCellValue(billingSheet, "D"+strconv.Itoa(rowNo), r.Amount.Round(2).InexactFloat64())
		f.SetCellStyle(billingSheet, "D"+strconv.Itoa(rowNo), "D"+strconv.Itoa(rowNo), amountStyle)
		f.SetCellValue(billingSheet, "E"+strconv.Itoa(rowNo), r.PaymentLine)
		rowNo++
	}
	f.SetCellValue(billingSheet, "A"+strconv.Itoa(rowNo+1), "Total de boletos")
	f.SetCellValue(billingSheet, "B"+strconv.Itoa(rowNo+1), len(records))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, utils.IOError("write billing workbook", err)
	}
	return buf.Bytes(), nil
}
