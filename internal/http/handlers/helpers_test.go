package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
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

// ---------- test plumbing ----------

const testUID = "user_1700000000000_abcdefghi"

var errBoom = errors.New("boom")

// newTestRouter mounts every endpoint the way the API router does, with a
// fixed user identifier and the idempotency key validator.
func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUID)
		c.Next()
	})
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	r.GET("/me", h.Me)
	r.GET("/me/reviews", h.ListMyReviews)
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpdateProfile)

	r.GET("/favorites", h.ListFavorites)
	r.GET("/favorites/events", h.FavoriteEvents)
	r.GET("/favorites/:recipeId", h.GetFavoriteStatus)
	r.POST("/favorites/:recipeId/toggle", h.ToggleFavorite)

	r.GET("/recipes", h.ListRecipes)
	r.GET("/recipes/:id", h.GetRecipe)
	r.GET("/recipes/:id/reviews", h.ListRecipeReviews)
	r.POST("/recipes/:id/reviews", h.SubmitReview)
	r.GET("/recipes/:id/stats", h.RecipeStats)
	r.PUT("/reviews/:id", h.UpdateReview)
	r.DELETE("/reviews/:id", h.DeleteReview)
	r.GET("/categories", h.ListCategories)

	r.GET("/cache/stats", h.CacheStats)
	r.DELETE("/cache", h.InvalidateCache)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, isStr := body.(string); isStr {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func syncDone(err error) <-chan services.SyncOutcome {
	ch := make(chan services.SyncOutcome, 1)
	ch <- services.SyncOutcome{Attempted: true, Err: err}
	return ch
}

// ---------- stubs ----------

type stubFavs struct {
	list      []domain.Favorite
	listErr   error
	toggle    func(recipeID string, snap *domain.RecipeSnapshot) (services.ToggleResult, error)
	favorited map[string]bool
	search    func(q string, k int) []domain.Favorite

	mu   sync.Mutex
	subs []func(events.FavoritesChanged)
	subd chan struct{}
}

func (s *stubFavs) List(context.Context) ([]domain.Favorite, error) { return s.list, s.listErr }

func (s *stubFavs) Toggle(_ context.Context, recipeID string, snap *domain.RecipeSnapshot) (services.ToggleResult, error) {
	return s.toggle(recipeID, snap)
}

func (s *stubFavs) IsFavorited(_ context.Context, recipeID string) (bool, error) {
	if recipeID == "" {
		return false, services.ErrInvalidRecipeID
	}
	return s.favorited[recipeID], nil
}

func (s *stubFavs) Search(_ context.Context, q string, k int) ([]domain.Favorite, error) {
	return s.search(q, k), nil
}

func (s *stubFavs) Subscribe(fn func(events.FavoritesChanged)) func() {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
	if s.subd != nil {
		close(s.subd)
	}
	return func() {}
}

func (s *stubFavs) publish(ev events.FavoritesChanged) {
	s.mu.Lock()
	subs := append([]func(events.FavoritesChanged){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *stubFavs) ListKey(context.Context) (string, error) {
	return storage.FavoritesKey(testUID), nil
}

type stubReviews struct {
	byID      map[string]domain.Review
	forRecipe []domain.Review
	mine      []domain.Review
	summary   domain.RecipeSummary
	submitErr error
	updateErr error
	deleteErr error

	submits int
}

func (s *stubReviews) Submit(_ context.Context, recipeID string, rating int, comment string) (services.SubmitResult, error) {
	if s.submitErr != nil {
		return services.SubmitResult{}, s.submitErr
	}
	s.submits++
	rev := domain.Review{ID: "rev-" + recipeID, RecipeID: domain.FlexID(recipeID), Rating: rating, Comment: comment}
	if s.byID == nil {
		s.byID = map[string]domain.Review{}
	}
	s.byID[rev.ID] = rev
	return services.SubmitResult{Review: rev, Summary: s.summary, Sync: syncDone(nil)}, nil
}

func (s *stubReviews) Get(_ context.Context, id string) (domain.Review, error) {
	if r, found := s.byID[id]; found {
		return r, nil
	}
	return domain.Review{}, services.ErrReviewNotFound
}

func (s *stubReviews) ListForRecipe(context.Context, string) ([]domain.Review, error) {
	return s.forRecipe, nil
}

func (s *stubReviews) ListUserReviews(context.Context) ([]domain.Review, error) { return s.mine, nil }

func (s *stubReviews) Update(_ context.Context, id string, rating int, comment string) (domain.Review, error) {
	if s.updateErr != nil {
		return domain.Review{}, s.updateErr
	}
	return domain.Review{ID: id, Rating: rating, Comment: comment}, nil
}

func (s *stubReviews) Delete(context.Context, string) error { return s.deleteErr }

func (s *stubReviews) RecipeStats(context.Context, string) (domain.RecipeSummary, error) {
	return s.summary, nil
}

type stubProfiles struct {
	saved domain.Profile
	err   error
}

func (s *stubProfiles) Get(context.Context) (domain.Profile, error) {
	return domain.Profile{Username: "Pengguna", UserID: testUID}, nil
}

func (s *stubProfiles) Save(_ context.Context, p domain.Profile) (domain.Profile, error) {
	if s.err != nil {
		return domain.Profile{}, s.err
	}
	p.UserID = testUID
	s.saved = p
	return p, nil
}

type stubRecipes struct {
	lastQuery remote.RecipeQuery
	page      remote.RecipePage
	recipe    domain.Recipe
	cats      []domain.Category
	err       error
	refreshed string
}

func (s *stubRecipes) List(_ context.Context, q remote.RecipeQuery) (remote.RecipePage, error) {
	s.lastQuery = q
	return s.page, s.err
}

func (s *stubRecipes) Get(_ context.Context, id string) (domain.Recipe, error) {
	if s.err != nil {
		return domain.Recipe{}, s.err
	}
	return s.recipe, nil
}

func (s *stubRecipes) Categories(context.Context) ([]domain.Category, error) { return s.cats, s.err }

func (s *stubRecipes) Refresh(pattern string) (int, error) {
	if pattern == "(" {
		return 0, services.ErrInvalidPattern
	}
	s.refreshed = pattern
	return 2, nil
}

type stubStat struct {
	info storage.Info
	err  error
}

func (s stubStat) Stat(context.Context, string) (storage.Info, error) { return s.info, s.err }

type stubCache struct{}

func (stubCache) Stats() querycache.Stats { return querycache.Stats{Entries: 3} }

type memIdem struct {
	mu   sync.Mutex
	recs map[string]string
}

func (m *memIdem) Lookup(_ context.Context, uid, scope, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, found := m.recs[uid+"|"+scope+"|"+key]
	return id, found
}

func (m *memIdem) Remember(_ context.Context, uid, scope, key, resourceID string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recs == nil {
		m.recs = map[string]string{}
	}
	m.recs[uid+"|"+scope+"|"+key] = resourceID
	return nil
}

func newHandlers(d Deps) *Handlers {
	if d.Favorites == nil {
		d.Favorites = &stubFavs{}
	}
	if d.Reviews == nil {
		d.Reviews = &stubReviews{}
	}
	if d.Profiles == nil {
		d.Profiles = &stubProfiles{}
	}
	if d.Recipes == nil {
		d.Recipes = &stubRecipes{}
	}
	if d.Heartbeat == 0 {
		d.Heartbeat = time.Hour
	}
	return New(d)
}
