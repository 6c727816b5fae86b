package models

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillingRecord is one payable obligation (a "boleto") of a payer within a lot.
// DocumentPath is written only by the document splitter.
type BillingRecord struct {
	ID           int             `gorm:"primary_key" json:"id"`
	PayerName    string          `gorm:"size:255;not null;index" json:"nome_sacado"`
	LotId        int             `gorm:"not null;index" json:"id_lote"`
	Lot          *Lot            `gorm:"foreignKey:LotId" json:"lote,omitempty"`
	Amount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"valor"`
	PaymentLine  string          `gorm:"size:255;not null" json:"linha_digitavel"`
	DocumentPath *string         `gorm:"size:255" json:"pdf_path"`
	IsActive     *bool           `gorm:"not null;default:true;index" json:"ativo"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"criado_em"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"atualizado_em"`
}

func (BillingRecord) TableName() string { return "boletos" }

type NewBillingRecord struct {
	PayerName   string          `json:"nome_sacado" validate:"required,max=255"`
	LotId       int             `json:"id_lote" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"valor"`
	PaymentLine string          `json:"linha_digitavel" validate:"required,max=255"`
}

func (input *NewBillingRecord) validate() error {
	input.PayerName = strings.TrimSpace(input.PayerName)
	input.PaymentLine = strings.TrimSpace(input.PaymentLine)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Amount.IsNegative() {
		return utils.Validationf("amount must not be negative, got %s", input.Amount)
	}
	return nil
}

// insertBillingRecord writes an already-validated record on db (which may be a tx).
func insertBillingRecord(ctx context.Context, db *gorm.DB, input *NewBillingRecord) (*BillingRecord, error) {
	record := BillingRecord{
		PayerName:   input.PayerName,
		LotId:       input.LotId,
		Amount:      input.Amount,
		PaymentLine: input.PaymentLine,
		IsActive:    utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateBillingRecord is the administrative single-record path; bulk creation
// goes through ImportBillingRows.
func CreateBillingRecord(ctx context.Context, db *gorm.DB, input *NewBillingRecord) (*BillingRecord, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := lotExists(ctx, db, input.LotId); err != nil {
		return nil, err
	}
	record, err := insertBillingRecord(ctx, db, input)
	if err != nil {
		return nil, utils.PersistenceError("create billing record", err)
	}
	invalidateBillingStatistics()
	return record, nil
}

// ActiveRecordsInStableOrder is the ordering contract behind positional
// correspondence: active records only, ascending id. Page i of a source
// document belongs to element i of this slice.
func ActiveRecordsInStableOrder(ctx context.Context, db *gorm.DB) ([]*BillingRecord, error) {
	var records []*BillingRecord
	if err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, utils.PersistenceError("load active billing records", err)
	}
	return records, nil
}

// activeRecordIds returns just the ids of ActiveRecordsInStableOrder.
func activeRecordIds(ctx context.Context, db *gorm.DB) ([]int, error) {
	var ids []int
	if err := db.WithContext(ctx).Model(&BillingRecord{}).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, utils.PersistenceError("load active billing record ids", err)
	}
	return ids, nil
}

func GetBillingRecord(ctx context.Context, db *gorm.DB, id int) (*BillingRecord, error) {
	var record BillingRecord
	err := db.WithContext(ctx).Preload("Lot").Where("is_active = ?", true).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundf("billing record %d not found", id)
		}
		return nil, utils.PersistenceError("fetch billing record", err)
	}
	return &record, nil
}

// BillingRecordUpdate leaves nil fields untouched.
type BillingRecordUpdate struct {
	PayerName   *string          `json:"nome_sacado" validate:"omitempty,min=1,max=255"`
	LotId       *int             `json:"id_lote" validate:"omitempty,gt=0"`
	Amount      *decimal.Decimal `json:"valor"`
	PaymentLine *string          `json:"linha_digitavel" validate:"omitempty,min=1,max=255"`
}

func UpdateBillingRecord(ctx context.Context, db *gorm.DB, id int, input *BillingRecordUpdate) (*BillingRecord, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Amount != nil && input.Amount.IsNegative() {
		return nil, utils.Validationf("amount must not be negative, got %s", input.Amount)
	}
	record, err := utils.FetchModel[BillingRecord](ctx, db, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if input.PayerName != nil {
		changes["PayerName"] = strings.TrimSpace(*input.PayerName)
	}
	if input.LotId != nil {
		if err := lotExists(ctx, db, *input.LotId); err != nil {
			return nil, err
		}
		changes["LotId"] = *input.LotId
	}
	if input.Amount != nil {
		changes["Amount"] = *input.Amount
	}
	if input.PaymentLine != nil {
		changes["PaymentLine"] = strings.TrimSpace(*input.PaymentLine)
	}
	if len(changes) == 0 {
		return record, nil
	}
	if err := db.WithContext(ctx).Model(record).Updates(changes).Error; err != nil {
		return nil, utils.PersistenceError("update billing record", err)
	}
	invalidateBillingStatistics()
	return utils.FetchModel[BillingRecord](ctx, db, id, "Lot")
}

// DeactivateBillingRecord soft-deletes a record. It shifts the positional
// correspondence of every later record, so it must not race a split.
func DeactivateBillingRecord(ctx context.Context, db *gorm.DB, id int) (*BillingRecord, error) {
	record, err := utils.FetchModel[BillingRecord](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(record).Update("IsActive", false).Error; err != nil {
		return nil, utils.PersistenceError("deactivate billing record", err)
	}
	record.IsActive = utils.NewFalse()
	invalidateBillingStatistics()
	return record, nil
}

// SetDocumentPath records where the split page of a record was written.
func SetDocumentPath(ctx context.Context, db *gorm.DB, id int, path string) error {
	result := db.WithContext(ctx).Model(&BillingRecord{}).Where("id = ?", id).Update("document_path", path)
	if result.Error != nil {
		return utils.PersistenceError("update document path", result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero for an unchanged row, so confirm the record exists.
		return utils.ValidateResourceId[BillingRecord](ctx, db, id)
	}
	return nil
}

// BillingRecordDocument returns the generated document of an active record,
// failing with NotFound when none was generated or the file is gone.
func BillingRecordDocument(ctx context.Context, db *gorm.DB, id int) (string, error) {
	record, err := GetBillingRecord(ctx, db, id)
	if err != nil {
		return "", err
	}
	path := utils.DereferencePtr(record.DocumentPath)
	if path == "" {
		return "", utils.NotFoundf("billing record %d has no document", id)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", utils.NotFoundf("document of billing record %d is missing", id)
		}
		return "", utils.IOError("stat document", err)
	}
	return path, nil
}
