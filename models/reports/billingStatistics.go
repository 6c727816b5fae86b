package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const unknownLotName = "Lote não encontrado"

type LotAverage struct {
	LotId         int             `json:"id_lote"`
	LotName       string          `json:"nome_lote"`
	AverageAmount decimal.Decimal `json:"media_valor"`
	RecordCount   int64           `json:"total_boletos"`
}

type BillingStatistics struct {
	TotalRecords int64           `json:"total_boletos"`
	TotalAmount  decimal.Decimal `json:"valor_total"`
	ByLot        []*LotAverage   `json:"media_por_lote"`
}

// GetBillingStatistics aggregates the active billing records. An empty store
// yields zero totals and an empty breakdown.
func GetBillingStatistics(ctx context.Context, db *gorm.DB) (*BillingStatistics, error) {
	started := time.Now()
	defer logSlowReport(ctx, "GetBillingStatistics", started, nil)

	if reportCacheEnabled() {
		var cached BillingStatistics
		if ok, err := cacheGet(models.BillingStatisticsCacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	stats, err := queryBillingStatistics(ctx, db)
	if err != nil {
		return nil, err
	}

	if reportCacheEnabled() {
		if err := cacheSet(models.BillingStatisticsCacheKey, stats, reportCacheTTL()); err != nil {
			config.LogError(config.GetLogger(), "reports", "GetBillingStatistics", "cacheSet", nil, err)
		}
	}
	return stats, nil
}

func queryBillingStatistics(ctx context.Context, db *gorm.DB) (*BillingStatistics, error) {
	logger := config.GetLogger()
	tx := db.WithContext(ctx)

	var totals struct {
		TotalRecords int64
		TotalAmount  decimal.Decimal
	}
	if err := tx.Raw(`
		SELECT COUNT(*) AS total_records, COALESCE(SUM(amount), 0) AS total_amount
		FROM boletos
		WHERE is_active = ?`, true).Scan(&totals).Error; err != nil {
		config.LogError(logger, "reports", "queryBillingStatistics", "totals", nil, err)
		return nil, utils.PersistenceError("aggregate billing totals", err)
	}

	var rows []struct {
		LotId         int
		LotName       *string
		AverageAmount decimal.Decimal
		RecordCount   int64
	}
	if err := tx.Raw(`
		SELECT b.lot_id AS lot_id, l.name AS lot_name,
			ROUND(AVG(b.amount), 2) AS average_amount, COUNT(b.id) AS record_count
		FROM boletos b
		LEFT JOIN lotes l ON l.id = b.lot_id
		WHERE b.is_active = ?
		GROUP BY b.lot_id, l.name
		ORDER BY b.lot_id`, true).Scan(&rows).Error; err != nil {
		config.LogError(logger, "reports", "queryBillingStatistics", "byLot", nil, err)
		return nil, utils.PersistenceError("aggregate billing by lot", err)
	}

	stats := &BillingStatistics{
		TotalRecords: totals.TotalRecords,
		TotalAmount:  totals.TotalAmount.Round(2),
		ByLot:        make([]*LotAverage, 0, len(rows)),
	}
	for _, r := range rows {
		stats.ByLot = append(stats.ByLot, &LotAverage{
			LotId:         r.LotId,
			LotName:       utils.DereferencePtr(r.LotName, unknownLotName),
			AverageAmount: r.AverageAmount.Round(2),
			RecordCount:   r.RecordCount,
		})
	}
	return stats, nil
}
