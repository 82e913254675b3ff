// Package services – FavoriteService
//
// This file implements the local-first favorites store. Local storage under
// favorites_<user> is the source of truth; the remote API is consulted only
// when the local list is empty and is otherwise updated best-effort after each
// local change.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/search"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

// maxRecipeIDLen caps accepted recipe identifiers.
const maxRecipeIDLen = 64

// IdentitySource resolves the current UserIdentifier.
type IdentitySource interface {
	Get(ctx context.Context) (string, error)
}

// FavoritesRemote is the remote API surface used by FavoriteService.
type FavoritesRemote interface {
	ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error)
	ToggleFavorite(ctx context.Context, recipeID, userID string) error
	// ForgetFavorites drops any cached remote favorites read for userID.
	ForgetFavorites(userID string)
}

// ToggleResult is the outcome of Toggle. Added and Favorites describe the
// authoritative local change; Sync delivers the informational remote outcome.
type ToggleResult struct {
	Added     bool
	Favorites []domain.Favorite
	Sync      <-chan SyncOutcome
}

// FavoriteService manages the current user's favorites.
type FavoriteService struct {
	Store    storage.Store
	Identity IdentitySource
	Remote   FavoritesRemote
	Events   *events.Broadcaster[events.FavoritesChanged]

	// RemoteSync enables remote reads and best-effort sync.
	RemoteSync  bool
	SyncTimeout time.Duration
	Now         func() time.Time

	// mu serializes read-modify-write cycles on the favorites list.
	mu sync.Mutex
}

// NewFavoriteService constructs a FavoriteService with remote sync enabled
// when r is non-nil.
func NewFavoriteService(st storage.Store, id IdentitySource, r FavoritesRemote) *FavoriteService {
	return &FavoriteService{
		Store:       st,
		Identity:    id,
		Remote:      r,
		Events:      &events.Broadcaster[events.FavoritesChanged]{},
		RemoteSync:  r != nil,
		SyncTimeout: defaultSyncTimeout,
		Now:         time.Now,
	}
}

// List returns the user's favorites.
//
// A non-empty local list is returned as is. An empty one triggers a remote
// read, unless a toggle emptied it: a cleanly stored empty list is the user's
// own removal and the remote copy may still lag behind it. A non-empty remote
// answer is written back locally. When the remote read fails the (empty)
// local list is the answer only if remote sync is off; otherwise
// ErrRemoteUnavailable is returned.
func (s *FavoriteService) List(ctx context.Context) ([]domain.Favorite, error) {
	ctx, span := otel.Tracer("services/FavoriteService").Start(ctx, "List")
	defer span.End()

	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	local := s.loadLocal(ctx, uid)
	emptied := len(local) == 0 && s.emptiedLocally(ctx, uid)
	s.mu.Unlock()

	if len(local) > 0 || emptied || !s.remoteEnabled() {
		span.SetAttributes(attribute.String("favorites.source", "local"))
		return local, nil
	}

	span.SetAttributes(attribute.String("favorites.source", "remote"))
	remote, err := s.Remote.ListFavorites(ctx, uid)
	if err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("favorites: remote read failed with empty local list")
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	remote, _ = normalizeFavorites(remote)
	if len(remote) == 0 {
		return []domain.Favorite{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A toggle may have landed while the remote read was in flight.
	if cur := s.loadLocal(ctx, uid); len(cur) > 0 || s.emptiedLocally(ctx, uid) {
		return cur, nil
	}
	if err := storage.WriteJSON(ctx, s.Store, storage.FavoritesKey(uid), remote); err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("favorites: warm-cache write failed")
	}
	return remote, nil
}

// Toggle removes recipeID from the favorites if present, otherwise appends a
// record built from snap (or a minimal record). The local write completes
// before Toggle returns; the remote sync runs afterwards and can never revert
// it or fail the call.
func (s *FavoriteService) Toggle(ctx context.Context, recipeID string, snap *domain.RecipeSnapshot) (ToggleResult, error) {
	ctx, span := otel.Tracer("services/FavoriteService").Start(ctx, "Toggle",
		trace.WithAttributes(attribute.String("recipe.id", recipeID)),
	)
	defer span.End()

	recipeID, err := normalizeRecipeID(recipeID)
	if err != nil {
		return ToggleResult{}, err
	}
	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return ToggleResult{}, err
	}

	s.mu.Lock()
	list := s.loadLocal(ctx, uid)
	added := true
	next := make([]domain.Favorite, 0, len(list)+1)
	for _, f := range list {
		if f.RecipeID.String() == recipeID {
			added = false
			continue
		}
		next = append(next, f)
	}
	if added {
		fav := domain.Favorite{RecipeID: domain.FlexID(recipeID), CreatedAt: s.now().UTC()}
		if snap != nil {
			fav.RecipeSnapshot = *snap
		}
		next = append(next, fav)
	}
	err = storage.WriteJSON(ctx, s.Store, storage.FavoritesKey(uid), next)
	s.mu.Unlock()
	if err != nil {
		return ToggleResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	span.SetAttributes(attribute.Bool("favorite.added", added))
	s.Events.Publish(events.FavoritesChanged{UserID: uid, RecipeID: recipeID, Added: added, Favorites: next})

	res := ToggleResult{Added: added, Favorites: next, Sync: skipped()}
	if s.remoteEnabled() {
		// A cached remote list predates this change and must not refill an
		// emptied local list.
		s.Remote.ForgetFavorites(uid)
		res.Sync = runSync(ctx, "favorites", s.SyncTimeout, func(ctx context.Context) error {
			return s.Remote.ToggleFavorite(ctx, recipeID, uid)
		})
	}
	return res, nil
}

// IsFavorited reports whether recipeID is in the local favorites list. It
// never waits for, or consults, the remote API.
func (s *FavoriteService) IsFavorited(ctx context.Context, recipeID string) (bool, error) {
	recipeID, err := normalizeRecipeID(recipeID)
	if err != nil {
		return false, err
	}
	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	list := s.loadLocal(ctx, uid)
	s.mu.Unlock()
	for _, f := range list {
		if f.RecipeID.String() == recipeID {
			return true, nil
		}
	}
	return false, nil
}

// Search ranks favorites against query using their snapshot text and returns
// at most k matches, best first.
func (s *FavoriteService) Search(ctx context.Context, query string, k int) ([]domain.Favorite, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Doc, 0, len(list))
	byID := make(map[string]domain.Favorite, len(list))
	for _, f := range list {
		id := f.RecipeID.String()
		byID[id] = f
		docs = append(docs, search.Doc{
			ID:   id,
			Text: strings.Join([]string{f.Name, f.Category, f.Difficulty, f.Description}, " "),
		})
	}
	hits := search.NewIndex(docs, search.WithStopwords(search.Stopwords)).TopK(query, k)
	out := make([]domain.Favorite, 0, len(hits))
	for _, h := range hits {
		out = append(out, byID[h.ID])
	}
	return out, nil
}

// Subscribe registers fn for favorites changes and returns the unsubscribe func.
func (s *FavoriteService) Subscribe(fn func(events.FavoritesChanged)) func() {
	return s.Events.Subscribe(fn)
}

// ListKey returns the storage key of the current user's favorites list.
func (s *FavoriteService) ListKey(ctx context.Context) (string, error) {
	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return "", err
	}
	return storage.FavoritesKey(uid), nil
}

// loadLocal reads the favorites list, migrating legacy records and dropping
// duplicates. A migrated list is written back once. Callers hold s.mu.
func (s *FavoriteService) loadLocal(ctx context.Context, uid string) []domain.Favorite {
	key := storage.FavoritesKey(uid)
	list := storage.ReadList[domain.Favorite](ctx, s.Store, key)
	list, changed := normalizeFavorites(list)
	if changed {
		if err := storage.WriteJSON(ctx, s.Store, key, list); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("favorites: legacy migration write failed")
		} else {
			log.Info().Str("key", key).Int("count", len(list)).Msg("favorites: migrated legacy records")
		}
	}
	return list
}

// emptiedLocally reports whether the favorites key holds a readable empty
// list, which only a toggle removing the last favorite writes. Callers hold
// s.mu.
func (s *FavoriteService) emptiedLocally(ctx context.Context, uid string) bool {
	var list []json.RawMessage
	found, err := storage.ReadJSON(ctx, s.Store, storage.FavoritesKey(uid), &list)
	return found && err == nil && list != nil && len(list) == 0
}

func (s *FavoriteService) remoteEnabled() bool { return s.RemoteSync && s.Remote != nil }

func (s *FavoriteService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// normalizeFavorites drops records without an identifier and duplicates
// (first occurrence wins). changed reports whether the stored form differs.
func normalizeFavorites(in []domain.Favorite) (out []domain.Favorite, changed bool) {
	out = make([]domain.Favorite, 0, len(in))
	seen := make(map[domain.FlexID]struct{}, len(in))
	for _, f := range in {
		if f.NeedsMigration() {
			changed = true
		}
		if f.RecipeID == "" {
			changed = true
			continue
		}
		if _, dup := seen[f.RecipeID]; dup {
			changed = true
			continue
		}
		seen[f.RecipeID] = struct{}{}
		out = append(out, f)
	}
	return out, changed
}

func normalizeRecipeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxRecipeIDLen {
		return "", ErrInvalidRecipeID
	}
	return id, nil
}
