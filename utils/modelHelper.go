package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

/* DB fetching */

// FetchModel loads T by primary key, preloading the given associations.
// A missing row yields ErrorRecordNotFound; any other failure is a persistence error.
func FetchModel[T any](ctx context.Context, db *gorm.DB, id int, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, PersistenceError("fetch record", err)
	}
	return &result, nil
}
