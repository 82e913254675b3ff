// Package repo implements the data persistence layer, backed by GORM. This
// file provides repository functions for the KVEntry model, the durable
// key-value table that holds favorites, reviews, profiles and the user
// identifier.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Error semantics:
//   - When a key is absent, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// GetKV returns the entry stored under key, or ErrNotFound.
func GetKV(ctx context.Context, db *gorm.DB, key string) (*domain.KVEntry, error) {
	var e domain.KVEntry
	if err := db.WithContext(ctx).Where("key = ?", key).Take(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// SetKV inserts or replaces the value under key.
func SetKV(ctx context.Context, db *gorm.DB, key, value string) error {
	now := time.Now().UTC()
	e := domain.KVEntry{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&e).Error
}

// DeleteKV removes key. Deleting an absent key is not an error.
func DeleteKV(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.KVEntry{}).Error
}

// ListKeys returns every key starting with prefix, in ascending order.
// An empty prefix lists all keys.
func ListKeys(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	q := db.WithContext(ctx).Model(&domain.KVEntry{})
	if prefix != "" {
		q = q.Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	var keys []string
	if err := q.Order("key ASC").Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
