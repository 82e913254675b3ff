// Package identity owns the per-installation UserIdentifier: an opaque string
// created lazily on first access, persisted, and never regenerated while the
// storage persists.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-recipe-backend/internal/storage"
)

// Provider resolves the current UserIdentifier.
type Provider struct {
	Store storage.Store
	Now   func() time.Time

	group singleflight.Group
}

// New returns a Provider over s.
func New(s storage.Store) *Provider {
	return &Provider{Store: s, Now: time.Now}
}

// Get returns the stored identifier, creating and persisting one on first
// access. Concurrent first calls share a single creation.
func (p *Provider) Get(ctx context.Context) (string, error) {
	if id, ok, err := p.load(ctx); err != nil || ok {
		return id, err
	}
	v, err, _ := p.group.Do(storage.UserIdentifierKey, func() (any, error) {
		// Re-check under the flight: a previous flight may have just stored it.
		if id, ok, err := p.load(ctx); err != nil || ok {
			return id, err
		}
		id := p.generate()
		if err := storage.WriteJSON(ctx, p.Store, storage.UserIdentifierKey, id); err != nil {
			return "", fmt.Errorf("persist user identifier: %w", err)
		}
		log.Info().Str("user_id", id).Msg("created user identifier")
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// load reads the identifier. Values written by older clients as a bare
// string (not JSON) are accepted as is.
func (p *Provider) load(ctx context.Context) (string, bool, error) {
	raw, err := p.Store.Get(ctx, storage.UserIdentifierKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var id string
	if json.Unmarshal([]byte(raw), &id) != nil {
		id = raw
	}
	id = strings.TrimSpace(id)
	return id, id != "", nil
}

// generate builds user_<unix-ms>_<9 base36 chars>.
func (p *Provider) generate() string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	suffix := n.Text(36)
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}
	return "user_" + strconv.FormatInt(p.now().UnixMilli(), 10) + "_" + suffix[len(suffix)-9:]
}

func (p *Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
