package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillingFilter narrows the active billing records. Nil fields impose no
// constraint; set fields are ANDed and the amount range is inclusive.
type BillingFilter struct {
	PayerName *string          `json:"nome,omitempty"`
	LotId     *int             `json:"id_lote,omitempty"`
	MinAmount *decimal.Decimal `json:"valor_inicial,omitempty"`
	MaxAmount *decimal.Decimal `json:"valor_final,omitempty"`
}

// describe lists the applied filters for the rendered report header.
func (f BillingFilter) describe() []string {
	var lines []string
	if f.PayerName != nil && *f.PayerName != "" {
		lines = append(lines, "Nome do sacado: "+*f.PayerName)
	}
	if f.LotId != nil {
		lines = append(lines, fmt.Sprintf("ID do lote: %d", *f.LotId))
	}
	if f.MinAmount != nil {
		lines = append(lines, "Valor inicial: "+utils.FormatCurrency(*f.MinAmount))
	}
	if f.MaxAmount != nil {
		lines = append(lines, "Valor final: "+utils.FormatCurrency(*f.MaxAmount))
	}
	return lines
}

// BillingRecordView is a billing record joined with its lot's display name.
// LotName is nil when the lot cannot be resolved.
type BillingRecordView struct {
	models.BillingRecord
	LotName *string `json:"nome_lote"`
}

// likeEscaper makes a user substring literal inside LIKE ... ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// GetBillingRecords returns the active records matching filter, ascending by id.
func GetBillingRecords(ctx context.Context, db *gorm.DB, filter BillingFilter) ([]*BillingRecordView, error) {
	started := time.Now()
	defer logSlowReport(ctx, "GetBillingRecords", started, nil)

	query := db.WithContext(ctx).Preload("Lot").Where("is_active = ?", true)
	if filter.PayerName != nil && *filter.PayerName != "" {
		query = query.Where("payer_name LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(*filter.PayerName)+"%")
	}
	if filter.LotId != nil {
		query = query.Where("lot_id = ?", *filter.LotId)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}

	var records []models.BillingRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		config.LogError(config.GetLogger(), "reports", "GetBillingRecords", "Find", filter, err)
		return nil, utils.PersistenceError("filter billing records", err)
	}

	views := make([]*BillingRecordView, 0, len(records))
	for _, r := range records {
		view := &BillingRecordView{BillingRecord: r}
		if r.Lot != nil {
			name := r.Lot.Name
			view.LotName = &name
		}
		views = append(views, view)
	}
	return views, nil
}

type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", ReportFormatJSON:
		return ReportFormatJSON, nil
	case ReportFormatPDF, ReportFormatXLSX:
		return f, nil
	default:
		return "", utils.Validationf("unknown report format %q", s)
	}
}

// BillingReport carries either the filtered records (json) or the rendered
// document bytes (pdf, xlsx; base64 once marshalled).
type BillingReport struct {
	Total    int                  `json:"total"`
	Format   ReportFormat         `json:"formato"`
	Records  []*BillingRecordView `json:"boletos,omitempty"`
	Document []byte               `json:"base64,omitempty"`
}

func GetBillingReport(ctx context.Context, db *gorm.DB, filter BillingFilter, format ReportFormat, settings config.PipelineSettings) (*BillingReport, error) {
	records, err := GetBillingRecords(ctx, db, filter)
	if err != nil {
		return nil, err
	}
	report := &BillingReport{Total: len(records), Format: format}

	switch format {
	case ReportFormatPDF:
		report.Document, err = RenderBillingReportPDF(records, filter, settings.ReportTitle, time.Now())
	case ReportFormatXLSX:
		report.Document, err = RenderBillingReportXLSX(records)
	default:
		report.Format = ReportFormatJSON
		report.Records = records
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}
