package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory SQLite database with the schema migrated.
// One pooled connection keeps the in-memory database alive for the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := config.OpenDatabase(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testSettings(t *testing.T) config.PipelineSettings {
	t.Helper()
	s := config.DefaultPipelineSettings()
	s.OutputDir = t.TempDir()
	s.UploadDir = t.TempDir()
	return s
}

func mustCreateLot(t *testing.T, db *gorm.DB, name string) *models.Lot {
	t.Helper()
	lot, err := models.CreateLot(context.Background(), db, &models.NewLot{Name: name})
	if err != nil {
		t.Fatalf("create lot %q: %v", name, err)
	}
	return lot
}

func mustMapUnit(t *testing.T, db *gorm.DB, externalName string, lotId int) *models.LotMapping {
	t.Helper()
	mapping, err := models.CreateLotMapping(context.Background(), db, &models.NewLotMapping{
		ExternalName:  externalName,
		InternalLotId: lotId,
	})
	if err != nil {
		t.Fatalf("map %q: %v", externalName, err)
	}
	return mapping
}

// mustInsertRecord writes a record with an explicit id, bypassing validation.
func mustInsertRecord(t *testing.T, db *gorm.DB, id int, lotId int, payer string, amount string) *models.BillingRecord {
	t.Helper()
	record := &models.BillingRecord{
		ID:          id,
		PayerName:   payer,
		LotId:       lotId,
		Amount:      decimal.RequireFromString(amount),
		PaymentLine: fmt.Sprintf("23790.00000 00000.%06d 00000.000000 1 00000000000000", id),
		IsActive:    utils.NewTrue(),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("insert record %d: %v", id, err)
	}
	return record
}

func countRecords(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.BillingRecord{}).Count(&n).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	return n
}

func rowsOf(fields ...[]string) []models.CSVRow {
	rows := make([]models.CSVRow, len(fields))
	for i, f := range fields {
		rows[i] = models.CSVRow{Line: i + 1, Fields: f}
	}
	return rows
}
