// Package handlers exposes the recipe companion API over Gin.
//
// Handlers are transport-thin: they parse input, call the services and
// translate results (and service errors, see response.go) into HTTP
// responses, including conditional responses and idempotent replays.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
	"github.com/tbourn/go-recipe-backend/internal/querycache"
	"github.com/tbourn/go-recipe-backend/internal/remote"
	"github.com/tbourn/go-recipe-backend/internal/services"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

//
// Service contracts (context-aware)
//

// FavoriteService manages the local favorites list.
type FavoriteService interface {
	List(ctx context.Context) ([]domain.Favorite, error)
	Toggle(ctx context.Context, recipeID string, snap *domain.RecipeSnapshot) (services.ToggleResult, error)
	IsFavorited(ctx context.Context, recipeID string) (bool, error)
	Search(ctx context.Context, query string, k int) ([]domain.Favorite, error)
	Subscribe(fn func(events.FavoritesChanged)) func()
	ListKey(ctx context.Context) (string, error)
}

// ReviewService manages locally stored reviews.
type ReviewService interface {
	Submit(ctx context.Context, recipeID string, rating int, comment string) (services.SubmitResult, error)
	Get(ctx context.Context, reviewID string) (domain.Review, error)
	ListForRecipe(ctx context.Context, recipeID string) ([]domain.Review, error)
	ListUserReviews(ctx context.Context) ([]domain.Review, error)
	Update(ctx context.Context, reviewID string, rating int, comment string) (domain.Review, error)
	Delete(ctx context.Context, reviewID string) error
	RecipeStats(ctx context.Context, recipeID string) (domain.RecipeSummary, error)
}

// ProfileService reads and writes the local profile.
type ProfileService interface {
	Get(ctx context.Context) (domain.Profile, error)
	Save(ctx context.Context, p domain.Profile) (domain.Profile, error)
}

// RecipeService browses the remote catalogue through the query cache.
type RecipeService interface {
	List(ctx context.Context, q remote.RecipeQuery) (remote.RecipePage, error)
	Get(ctx context.Context, id string) (domain.Recipe, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Refresh(pattern string) (int, error)
}

// KeyStater reports size and modification time of a stored value (ETags).
type KeyStater interface {
	Stat(ctx context.Context, key string) (storage.Info, error)
}

// CacheInspector exposes query cache statistics.
type CacheInspector interface {
	Stats() querycache.Stats
}

// IdempotencyStore remembers which resource an idempotent request created.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string) (resourceID string, found bool)
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers. Store, Cache and Idempotency are
// optional; the features relying on them are skipped when nil.
type Deps struct {
	Favorites   FavoriteService
	Reviews     ReviewService
	Profiles    ProfileService
	Recipes     RecipeService
	Store       KeyStater
	Cache       CacheInspector
	Idempotency IdempotencyStore

	// Heartbeat is the keep-alive interval of event streams (default 25s).
	Heartbeat time.Duration
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	favs     FavoriteService
	reviews  ReviewService
	profiles ProfileService
	recipes  RecipeService
	store    KeyStater
	cache    CacheInspector
	idem     IdempotencyStore

	heartbeat time.Duration
}

// New constructs Handlers from d.
func New(d Deps) *Handlers {
	hb := d.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	return &Handlers{
		favs:      d.Favorites,
		reviews:   d.Reviews,
		profiles:  d.Profiles,
		recipes:   d.Recipes,
		store:     d.Store,
		cache:     d.Cache,
		idem:      d.Idempotency,
		heartbeat: hb,
	}
}

// userID returns the identifier resolved by middleware.Identity.
func userID(c *gin.Context) string { return middleware.UserID(c) }

// SyncStatus reports the outcome of a best-effort remote sync when the
// client asked to wait for it.
type SyncStatus struct {
	Attempted bool   `json:"attempted"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// waitSync waits for a sync outcome when the request carries ?wait_sync=true.
// A nil result means the client did not ask or gave up waiting.
func waitSync(c *gin.Context, ch <-chan services.SyncOutcome) *SyncStatus {
	if c.Query("wait_sync") != "true" || ch == nil {
		return nil
	}
	select {
	case o := <-ch:
		st := &SyncStatus{Attempted: o.Attempted, OK: o.OK()}
		if o.Err != nil {
			st.Error = o.Err.Error()
		}
		return st
	case <-c.Request.Context().Done():
		return nil
	}
}
