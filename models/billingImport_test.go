package models_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"gorm.io/gorm"
)

func TestImportBillingRowsAllMapped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	lot := mustCreateLot(t, db, "Lote A")
	mustMapUnit(t, db, "UNIT-A", lot.ID)

	rows := rowsOf(
		[]string{"Maria", "UNIT-A", "100,50", "line-1"},
		[]string{"João", "UNIT-A", "1.234,00", "line-2"},
	)
	outcome, err := models.ImportBillingRows(ctx, db, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Total != 2 || outcome.Imported != 2 || outcome.Failed != 0 || len(outcome.Errors) != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}

	records, err := models.ActiveRecordsInStableOrder(ctx, db)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if !records[1].Amount.Equal(decimal.RequireFromString("1234")) {
		t.Fatalf("amount = %s, want 1234", records[1].Amount)
	}
	for _, r := range records {
		if r.LotId != lot.ID {
			t.Fatalf("record %d lot = %d, want %d", r.ID, r.LotId, lot.ID)
		}
		if r.DocumentPath != nil {
			t.Fatalf("record %d has document path before split", r.ID)
		}
	}
}

func TestImportBillingRowsCountsUnmappedUnits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.Create(&models.Lot{ID: 7, Name: "Lote 7", IsActive: utils.NewTrue()}).Error; err != nil {
		t.Fatalf("lot: %v", err)
	}
	mustMapUnit(t, db, "A", 7)

	rows := rowsOf(
		[]string{"P1", "A", "10,00", "l1"},
		[]string{"P2", "B", "20,00", "l2"},
		[]string{"P3", "A", "30,00", "l3"},
	)
	outcome, err := models.ImportBillingRows(ctx, db, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Total != 3 || outcome.Imported != 2 || outcome.Failed != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(outcome.Errors) != 1 || !strings.Contains(outcome.Errors[0], `"B"`) {
		t.Fatalf("errors = %v", outcome.Errors)
	}

	records, err := models.ActiveRecordsInStableOrder(ctx, db)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.LotId != 7 {
			t.Fatalf("record %s lot = %d, want 7", r.PayerName, r.LotId)
		}
	}
}

func TestImportBillingRowsCountsBadFields(t *testing.T) {
	db := newTestDB(t)
	lot := mustCreateLot(t, db, "Lote A")
	mustMapUnit(t, db, "A", lot.ID)

	rows := rowsOf(
		[]string{"P1", "A", "abc", "l1"},
		[]string{"P2", "A", "10,00"},
		[]string{"P3", "A", "-5,00", "l3"},
		[]string{"", "A", "5,00", "l4"},
		[]string{"P5", " A ", "5,00", "l5"},
	)
	outcome, err := models.ImportBillingRows(context.Background(), db, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Imported != 1 || outcome.Failed != 4 || len(outcome.Errors) != 4 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Imported+outcome.Failed != outcome.Total {
		t.Fatalf("imported+failed != total: %+v", outcome)
	}
}

func TestImportBillingRowsRejectedInsertKeepsBatch(t *testing.T) {
	db := newTestDB(t)
	lot := mustCreateLot(t, db, "Lote A")
	mustMapUnit(t, db, "A", lot.ID)

	err := db.Callback().Create().Before("gorm:create").Register("test:reject_payer", func(tx *gorm.DB) {
		if r, ok := tx.Statement.Dest.(*models.BillingRecord); ok && r.PayerName == "FAIL" {
			_ = tx.AddError(errors.New("insert rejected"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	rows := rowsOf(
		[]string{"P1", "A", "10,00", "l1"},
		[]string{"FAIL", "A", "20,00", "l2"},
		[]string{"P3", "A", "30,00", "l3"},
	)
	outcome, err := models.ImportBillingRows(context.Background(), db, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Imported != 2 || outcome.Failed != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.Errors[0], "FAIL") {
		t.Fatalf("error does not name the payer: %v", outcome.Errors)
	}
	if n := countRecords(t, db); n != 2 {
		t.Fatalf("stored records = %d, want 2", n)
	}
}

func TestImportBillingRowsSystemicFailureRollsBack(t *testing.T) {
	db := newTestDB(t)
	lot := mustCreateLot(t, db, "Lote A")
	mustMapUnit(t, db, "A", lot.ID)

	lookups := 0
	err := db.Callback().Query().Before("gorm:query").Register("test:fail_lookup", func(tx *gorm.DB) {
		if tx.Statement.Table != "mapeamento_lotes" {
			return
		}
		lookups++
		if lookups == 2 {
			_ = tx.AddError(errors.New("connection reset"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	rows := rowsOf(
		[]string{"P1", "A", "10,00", "l1"},
		[]string{"P2", "A", "20,00", "l2"},
		[]string{"P3", "A", "30,00", "l3"},
	)
	outcome, err := models.ImportBillingRows(context.Background(), db, rows)
	if !errors.Is(err, utils.ErrImport) {
		t.Fatalf("err = %v, want ErrImport", err)
	}
	if outcome != nil {
		t.Fatalf("outcome = %+v, want nil", outcome)
	}
	if n := countRecords(t, db); n != 0 {
		t.Fatalf("stored records = %d, want 0 after rollback", n)
	}
}

func TestImportBillingRowsEmptyBatch(t *testing.T) {
	db := newTestDB(t)
	outcome, err := models.ImportBillingRows(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Total != 0 || outcome.Imported != 0 || outcome.Errors == nil {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestParseBillingCSV(t *testing.T) {
	settings := config.DefaultPipelineSettings()
	input := "\ufeffMaria;UNIT-A;100,50;line-1\n\"Silva; José\";UNIT-B;10,00;line-2\nshort;row\n"
	rows, err := models.ParseBillingCSV(strings.NewReader(input), settings)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Fields[0] != "Maria" {
		t.Fatalf("BOM not stripped: %q", rows[0].Fields[0])
	}
	if rows[1].Fields[0] != "Silva; José" || rows[1].Line != 2 {
		t.Fatalf("row 2 = %+v", rows[1])
	}
	if len(rows[2].Fields) != 2 {
		t.Fatalf("short row fields = %v", rows[2].Fields)
	}
}

func TestParseBillingCSVLatin1(t *testing.T) {
	settings := config.DefaultPipelineSettings()
	settings.CSVEncoding = config.CSVEncodingLatin1
	encoded, err := charmap.ISO8859_1.NewEncoder().String("José;UNIT-A;1,00;l1\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rows, err := models.ParseBillingCSV(strings.NewReader(encoded), settings)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0].Fields[0] != "José" {
		t.Fatalf("payer = %q, want José", rows[0].Fields[0])
	}
}

func TestParseBillingCSVUnknownEncoding(t *testing.T) {
	settings := config.DefaultPipelineSettings()
	settings.CSVEncoding = "ebcdic"
	_, err := models.ParseBillingCSV(strings.NewReader("a;b;c;d\n"), settings)
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestImportBillingCSVFromFile(t *testing.T) {
	db := newTestDB(t)
	lot := mustCreateLot(t, db, "Lote A")
	mustMapUnit(t, db, "A", lot.ID)

	path := filepath.Join(t.TempDir(), "boletos.csv")
	if err := os.WriteFile(path, []byte("P1;A;10,00;l1\nP2;X;20,00;l2\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	outcome, err := models.ImportBillingCSV(context.Background(), db, path, config.DefaultPipelineSettings())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Imported != 1 || outcome.Failed != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}

	_, err = models.ImportBillingCSV(context.Background(), db, filepath.Join(t.TempDir(), "missing.csv"), config.DefaultPipelineSettings())
	if !errors.Is(err, utils.ErrIO) {
		t.Fatalf("missing file err = %v, want io error", err)
	}
}
