package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/boletos_backend/utils"
	"gorm.io/gorm"
)

// LotMapping translates an external unit name into an internal lot.
// ExternalName is unique across all mappings.
type LotMapping struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ExternalName  string    `gorm:"size:100;not null;uniqueIndex" json:"nome_externo"`
	InternalLotId int       `gorm:"not null;index" json:"id_lote_interno"`
	InternalLot   *Lot      `gorm:"foreignKey:InternalLotId" json:"loteInterno,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (LotMapping) TableName() string { return "mapeamento_lotes" }

type NewLotMapping struct {
	ExternalName  string `json:"nome_externo" validate:"required,max=100"`
	InternalLotId int    `json:"id_lote_interno" validate:"required,gt=0"`
}

func (input *NewLotMapping) validate(ctx context.Context, tx *gorm.DB, id int) error {
	input.ExternalName = strings.TrimSpace(input.ExternalName)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	// the lot only has to exist; inactive lots may still be mapped
	if err := lotExists(ctx, tx, input.InternalLotId); err != nil {
		return err
	}
	if err := utils.ValidateUnique[LotMapping](ctx, tx, "external_name", input.ExternalName, id); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return utils.Conflictf("external unit %q is already mapped", input.ExternalName)
		}
		return err
	}
	return nil
}

func CreateLotMapping(ctx context.Context, db *gorm.DB, input *NewLotMapping) (*LotMapping, error) {
	var mapping LotMapping
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := input.validate(ctx, tx, 0); err != nil {
			return err
		}
		mapping = LotMapping{
			ExternalName:  input.ExternalName,
			InternalLotId: input.InternalLotId,
		}
		if err := tx.Create(&mapping).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.Conflictf("external unit %q is already mapped", input.ExternalName)
			}
			return utils.PersistenceError("create lot mapping", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fetchLotMapping(ctx, db, mapping.ID)
}

// UpdateLotMapping replaces both fields. Keeping the mapping's own external
// name is not a conflict.
func UpdateLotMapping(ctx context.Context, db *gorm.DB, id int, input *NewLotMapping) (*LotMapping, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mapping, err := utils.FetchModel[LotMapping](ctx, tx, id)
		if err != nil {
			return err
		}
		if err := input.validate(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Model(mapping).Updates(map[string]interface{}{
			"ExternalName":  input.ExternalName,
			"InternalLotId": input.InternalLotId,
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.Conflictf("external unit %q is already mapped", input.ExternalName)
			}
			return utils.PersistenceError("update lot mapping", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fetchLotMapping(ctx, db, id)
}

// DeleteLotMapping hard-deletes the mapping. Records already imported through
// it keep their lot.
func DeleteLotMapping(ctx context.Context, db *gorm.DB, id int) (*LotMapping, error) {
	mapping, err := utils.FetchModel[LotMapping](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(mapping).Error; err != nil {
		return nil, utils.PersistenceError("delete lot mapping", err)
	}
	return mapping, nil
}

func ListLotMappings(ctx context.Context, db *gorm.DB) ([]*LotMapping, error) {
	var mappings []*LotMapping
	if err := db.WithContext(ctx).Preload("InternalLot").Order("external_name").Find(&mappings).Error; err != nil {
		return nil, utils.PersistenceError("list lot mappings", err)
	}
	return mappings, nil
}

// FindLotMapping looks up a mapping by exact external name.
// (nil, nil) means no mapping exists; an error means the lookup itself failed.
func FindLotMapping(ctx context.Context, db *gorm.DB, externalName string) (*LotMapping, error) {
	var mapping LotMapping
	err := db.WithContext(ctx).Where("external_name = ?", externalName).Take(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func fetchLotMapping(ctx context.Context, db *gorm.DB, id int) (*LotMapping, error) {
	return utils.FetchModel[LotMapping](ctx, db, id, "InternalLot")
}
