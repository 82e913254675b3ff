// Package storage provides the durable key-value storage that holds a single
// user's favorites, reviews, profile and identifier. Values are opaque strings
// (JSON documents in practice); the namespace is partitioned by key prefix.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent from the store.
var ErrNotFound = errors.New("not found")

// Info describes a stored value without reading it.
type Info struct {
	Size      int64
	UpdatedAt time.Time
}

// Store abstracts durable key-value persistence. Implementations must be safe
// for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Stat(ctx context.Context, key string) (Info, error)
}
