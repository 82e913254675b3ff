package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ReadJSON decodes the value under key into v. It reports found=false when
// the key is absent. A value that does not decode is returned as an error.
func ReadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// ReadList returns the list stored under key. Absent, unreadable or
// corrupted content yields an empty, non-nil slice; corruption is logged.
func ReadList[T any](ctx context.Context, s Store, key string) []T {
	var out []T
	if _, err := ReadJSON(ctx, s, key, &out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("storage: treating unreadable list as empty")
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

// WriteJSON encodes v and stores it under key, replacing any previous value.
func WriteJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}
