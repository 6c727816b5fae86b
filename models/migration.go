package models

import (
	"gorm.io/gorm"
)

// MigrateTable creates or updates the lot, mapping and billing record tables.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Lot{},
		&LotMapping{},
		&BillingRecord{},
	)
}
