// Package repo implements the data persistence layer, backed by GORM. This
// file provides small metadata queries used for conditional responses (ETag
// generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// KVStat returns the stored value length and last write time of key.
// When the key is absent it returns ErrNotFound.
func KVStat(ctx context.Context, db *gorm.DB, key string) (size int64, updatedAt time.Time, err error) {
	var row struct {
		Size      int64
		UpdatedAt time.Time
	}
	res := db.WithContext(ctx).Model(&domain.KVEntry{}).
		Select("length(value) AS size, updated_at").
		Where("key = ?", key).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, time.Time{}, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, time.Time{}, ErrNotFound
	}
	return row.Size, row.UpdatedAt, nil
}
