package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/remote"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

// ---------- test helpers ----------

type staticID string

func (s staticID) Get(context.Context) (string, error) { return string(s), nil }

const testUID = "user_1700000000000_abcdefghi"

// recordingStore counts writes and can fail writes to chosen key prefixes.
type recordingStore struct {
	storage.Store

	mu       sync.Mutex
	sets     []string
	failPref []string
}

func newRecordingStore(failPrefixes ...string) *recordingStore {
	return &recordingStore{Store: storage.NewMemory(), failPref: failPrefixes}
}

func (r *recordingStore) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.sets = append(r.sets, key)
	fail := false
	for _, p := range r.failPref {
		if strings.HasPrefix(key, p) {
			fail = true
		}
	}
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.Store.Set(ctx, key, value)
}

func (r *recordingStore) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sets...)
}

// fakeRemote implements every remote surface the services use.
type fakeRemote struct {
	mu sync.Mutex

	favorites    []domain.Favorite
	favoritesErr error
	listCalls    int

	toggleErr   error
	toggleGate  chan struct{}
	toggledIDs  []string
	forgotten   []string
	created     []domain.Review
	reviews     []domain.Review
	reviewsErr  error
	createErr   error
	updateErr   error
	deleteErr   error
	recipes     map[string]domain.Recipe
	recipeErr   error
	page        remote.RecipePage
	lastQuery   remote.RecipeQuery
	categories  []domain.Category
	invalidated []string
}

func (f *fakeRemote) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.favorites, f.favoritesErr
}

func (f *fakeRemote) ToggleFavorite(ctx context.Context, recipeID, userID string) error {
	if f.toggleGate != nil {
		select {
		case <-f.toggleGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggledIDs = append(f.toggledIDs, recipeID)
	return f.toggleErr
}

func (f *fakeRemote) ForgetFavorites(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, userID)
}

func (f *fakeRemote) ListReviews(ctx context.Context, recipeID string) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reviews, f.reviewsErr
}

func (f *fakeRemote) CreateReview(ctx context.Context, recipeID string, r domain.Review) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, r)
	return r, f.createErr
}

func (f *fakeRemote) UpdateReview(ctx context.Context, reviewID string, u remote.ReviewUpdate) (domain.Review, error) {
	return domain.Review{ID: reviewID, Rating: u.Rating, Comment: u.Comment}, f.updateErr
}

func (f *fakeRemote) DeleteReview(ctx context.Context, reviewID string) error { return f.deleteErr }

func (f *fakeRemote) ListRecipes(ctx context.Context, q remote.RecipeQuery) (remote.RecipePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return f.page, f.recipeErr
}

func (f *fakeRemote) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	if f.recipeErr != nil {
		return domain.Recipe{}, f.recipeErr
	}
	return f.recipes[id], nil
}

func (f *fakeRemote) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return f.categories, f.recipeErr
}

func (f *fakeRemote) Invalidate(pattern string) (int, error) {
	f.invalidated = append(f.invalidated, pattern)
	if pattern == "(" {
		return 0, errors.New("bad regexp")
	}
	return 3, nil
}

func waitSync(t *testing.T, ch <-chan SyncOutcome) SyncOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatalf("sync outcome not delivered")
		return SyncOutcome{}
	}
}

func favoriteIDs(list []domain.Favorite) []string {
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = f.RecipeID.String()
	}
	return out
}
