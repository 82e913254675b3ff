package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/repo"
)

type sqlStore struct {
	db *gorm.DB
}

// NewSQL returns a Store backed by the kv_entries table. The schema must
// already be migrated (see repo.AutoMigrate).
func NewSQL(db *gorm.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Get(ctx context.Context, key string) (string, error) {
	e, err := repo.GetKV(ctx, s.db, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

func (s *sqlStore) Set(ctx context.Context, key, value string) error {
	return repo.SetKV(ctx, s.db, key, value)
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	return repo.DeleteKV(ctx, s.db, key)
}

func (s *sqlStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return repo.ListKeys(ctx, s.db, prefix)
}

func (s *sqlStore) Stat(ctx context.Context, key string) (Info, error) {
	size, at, err := repo.KVStat(ctx, s.db, key)
	if errors.Is(err, repo.ErrNotFound) {
		return Info{}, ErrNotFound
	}
	if err != nil {
		return Info{}, err
	}
	return Info{Size: size, UpdatedAt: at}, nil
}
