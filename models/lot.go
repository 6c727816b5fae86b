package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/utils"
	"gorm.io/gorm"
)

// Lot is an internal billing group. Lots are soft-deactivated, never deleted.
type Lot struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;index" json:"nome"`
	IsActive  *bool     `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lot) TableName() string { return "lotes" }

type NewLot struct {
	Name string `json:"nome" validate:"required,max=100"`
}

func (input *NewLot) validate(ctx context.Context, db *gorm.DB, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[Lot](ctx, db, "name", input.Name, id)
}

func CreateLot(ctx context.Context, db *gorm.DB, input *NewLot) (*Lot, error) {
	if err := input.validate(ctx, db, 0); err != nil {
		return nil, err
	}

	lot := Lot{
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&lot).Error; err != nil {
		return nil, utils.PersistenceError("create lot", err)
	}
	clearLotCache(lot.ID)
	return &lot, nil
}

func UpdateLot(ctx context.Context, db *gorm.DB, id int, input *NewLot) (*Lot, error) {
	lot, err := utils.FetchModel[Lot](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, db, id); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(lot).Updates(map[string]interface{}{
		"Name": input.Name,
	}).Error; err != nil {
		return nil, utils.PersistenceError("update lot", err)
	}
	clearLotCache(id)
	invalidateBillingStatistics()
	return lot, nil
}

// DeactivateLot soft-deletes a lot. Lots still referenced by active billing
// records are kept active.
func DeactivateLot(ctx context.Context, db *gorm.DB, id int) (*Lot, error) {
	lot, err := utils.FetchModel[Lot](ctx, db, id)
	if err != nil {
		return nil, err
	}
	inUse, err := utils.ResourceCountWhere[BillingRecord](ctx, db, "lot_id = ? AND is_active = ?", id, true)
	if err != nil {
		return nil, err
	}
	if inUse > 0 {
		return nil, utils.Conflictf("lot %d has %d active billing records", id, inUse)
	}
	if err := db.WithContext(ctx).Model(lot).Update("IsActive", false).Error; err != nil {
		return nil, utils.PersistenceError("deactivate lot", err)
	}
	lot.IsActive = utils.NewFalse()
	clearLotCache(id)
	return lot, nil
}

// GetLot reads through the redis item cache.
func GetLot(ctx context.Context, db *gorm.DB, id int) (*Lot, error) {
	if cached, err := utils.RetrieveRedis[Lot](id); err == nil && cached != nil {
		return cached, nil
	}
	lot, err := utils.FetchModel[Lot](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(lot, id); err != nil {
		config.LogError(config.GetLogger(), "models", "GetLot", "StoreRedis", id, err)
	}
	return lot, nil
}

func ListActiveLots(ctx context.Context, db *gorm.DB) ([]*Lot, error) {
	if cached, err := utils.RetrieveRedisList[Lot](); err == nil && cached != nil {
		return cached, nil
	}
	var lots []*Lot
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&lots).Error; err != nil {
		return nil, utils.PersistenceError("list lots", err)
	}
	if err := utils.StoreRedisList(lots); err != nil {
		config.LogError(config.GetLogger(), "models", "ListActiveLots", "StoreRedisList", nil, err)
	}
	return lots, nil
}

func clearLotCache(id int) {
	if err := utils.RemoveRedisItem[Lot](id); err != nil {
		config.LogError(config.GetLogger(), "models", "clearLotCache", "RemoveRedisItem", id, err)
	}
	if err := utils.RemoveRedisList[Lot](); err != nil {
		config.LogError(config.GetLogger(), "models", "clearLotCache", "RemoveRedisList", nil, err)
	}
}

func lotExists(ctx context.Context, db *gorm.DB, id int) error {
	err := utils.ValidateResourceId[Lot](ctx, db, id)
	if errors.Is(err, utils.ErrNotFound) {
		return utils.NotFoundf("lot %d not found", id)
	}
	return err
}
