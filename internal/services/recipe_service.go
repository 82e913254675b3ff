// Package services – RecipeService
//
// This file implements remote recipe browsing through the cached remote
// client. Recipe detail is enriched with the locally recomputed review
// aggregate when one exists.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/remote"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

// RecipesRemote is the remote API surface used by RecipeService.
type RecipesRemote interface {
	ListRecipes(ctx context.Context, q remote.RecipeQuery) (remote.RecipePage, error)
	GetRecipe(ctx context.Context, id string) (domain.Recipe, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	Invalidate(pattern string) (int, error)
}

// RecipeService serves recipes and categories.
type RecipeService struct {
	Remote RecipesRemote
	Store  storage.Store
}

// NewRecipeService constructs a RecipeService.
func NewRecipeService(r RecipesRemote, st storage.Store) *RecipeService {
	return &RecipeService{Remote: r, Store: st}
}

// List returns one page of recipes.
func (s *RecipeService) List(ctx context.Context, q remote.RecipeQuery) (remote.RecipePage, error) {
	ctx, span := otel.Tracer("services/RecipeService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("recipe.category", q.Category), attribute.Int("page", q.Page)),
	)
	defer span.End()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 12
	}
	page, err := s.Remote.ListRecipes(ctx, q)
	if err != nil {
		return remote.RecipePage{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if page.Recipes == nil {
		page.Recipes = []domain.Recipe{}
	}
	return page, nil
}

// Get returns one recipe. A locally stored review aggregate overrides the
// remote average_rating and review_count.
func (s *RecipeService) Get(ctx context.Context, id string) (domain.Recipe, error) {
	id, err := normalizeRecipeID(id)
	if err != nil {
		return domain.Recipe{}, err
	}
	ctx, span := otel.Tracer("services/RecipeService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("recipe.id", id)),
	)
	defer span.End()

	r, err := s.Remote.GetRecipe(ctx, id)
	if err != nil {
		if remote.StatusCode(err) == http.StatusNotFound {
			return domain.Recipe{}, ErrRecipeNotFound
		}
		return domain.Recipe{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if r.ID == "" {
		return domain.Recipe{}, ErrRecipeNotFound
	}

	if s.Store != nil {
		var sum domain.RecipeSummary
		if ok, err := storage.ReadJSON(ctx, s.Store, storage.RecipeKey(id), &sum); ok && err == nil && sum.ReviewCount > 0 {
			r.AverageRating = sum.AverageRating
			r.ReviewCount = sum.ReviewCount
		}
	}
	return r, nil
}

// Categories returns all recipe categories.
func (s *RecipeService) Categories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.Remote.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	return cats, nil
}

// Refresh drops cached remote reads matching pattern (all when empty) and
// returns how many entries were removed.
func (s *RecipeService) Refresh(pattern string) (int, error) {
	n, err := s.Remote.Invalidate(pattern)
	if err != nil {
		return 0, errors.Join(ErrInvalidPattern, err)
	}
	return n, nil
}
