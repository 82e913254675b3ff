// Package services – ReviewService
//
// This file implements review submission and the profile-side reconciliation
// read. Reviews are written to two independent local lists, the per-recipe
// list recipe_reviews_<id> (which also drives the cached recipe_<id>
// aggregate) and the per-user list user_reviews_<uid>. The remote API is
// updated best-effort on submit and authoritatively on update/delete.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/remote"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

// MaxCommentRunes is the default comment length limit.
const MaxCommentRunes = 500

// UnknownRecipeName labels reviews whose recipe name cannot be resolved locally.
const UnknownRecipeName = "Unknown recipe"

// ReviewsRemote is the remote API surface used by ReviewService.
type ReviewsRemote interface {
	ListReviews(ctx context.Context, recipeID string) ([]domain.Review, error)
	CreateReview(ctx context.Context, recipeID string, r domain.Review) (domain.Review, error)
	UpdateReview(ctx context.Context, reviewID string, u remote.ReviewUpdate) (domain.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
}

// SubmitResult is the outcome of Submit. Review and Summary are the local,
// authoritative result; Sync delivers the remote push outcome.
type SubmitResult struct {
	Review  domain.Review
	Summary domain.RecipeSummary
	Sync    <-chan SyncOutcome
}

// ReviewService manages reviews authored by the current user.
type ReviewService struct {
	Store    storage.Store
	Identity IdentitySource
	Remote   ReviewsRemote

	RemoteSync      bool
	SyncTimeout     time.Duration
	MaxCommentRunes int
	Now             func() time.Time

	mu sync.Mutex
}

// NewReviewService constructs a ReviewService with remote sync enabled when
// r is non-nil.
func NewReviewService(st storage.Store, id IdentitySource, r ReviewsRemote) *ReviewService {
	return &ReviewService{
		Store:           st,
		Identity:        id,
		Remote:          r,
		RemoteSync:      r != nil,
		SyncTimeout:     defaultSyncTimeout,
		MaxCommentRunes: MaxCommentRunes,
		Now:             time.Now,
	}
}

// Submit validates and stores a new review for recipeID.
//
// The per-recipe and per-user writes are independent: one failing does not
// stop the other, and an error is returned only if both fail. The recipe
// aggregate is recomputed over the whole per-recipe list.
func (s *ReviewService) Submit(ctx context.Context, recipeID string, rating int, comment string) (SubmitResult, error) {
	ctx, span := otel.Tracer("services/ReviewService").Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("recipe.id", recipeID), attribute.Int("review.rating", rating)),
	)
	defer span.End()

	recipeID, err := normalizeRecipeID(recipeID)
	if err != nil {
		return SubmitResult{}, err
	}
	comment, err = s.validate(rating, comment)
	if err != nil {
		return SubmitResult{}, err
	}
	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return SubmitResult{}, err
	}

	s.mu.Lock()
	rev := domain.Review{
		ID:             uuid.NewString(),
		RecipeID:       domain.FlexID(recipeID),
		UserIdentifier: uid,
		RecipeName:     s.recipeName(ctx, uid, recipeID),
		Rating:         rating,
		Comment:        comment,
		CreatedAt:      s.now().UTC(),
	}

	summary, recipeErr := s.appendRecipeReview(ctx, rev)
	userErr := s.appendUserReview(ctx, uid, rev)
	s.mu.Unlock()

	switch {
	case recipeErr != nil && userErr != nil:
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrStorage, errors.Join(recipeErr, userErr))
	case recipeErr != nil:
		log.Warn().Err(recipeErr).Str("recipe_id", recipeID).Msg("reviews: per-recipe write failed; per-user copy kept")
	case userErr != nil:
		log.Warn().Err(userErr).Str("user_id", uid).Msg("reviews: per-user write failed; per-recipe copy kept")
	}

	res := SubmitResult{Review: rev, Summary: summary, Sync: skipped()}
	if s.remoteEnabled() {
		res.Sync = runSync(ctx, "reviews", s.SyncTimeout, func(ctx context.Context) error {
			_, err := s.Remote.CreateReview(ctx, recipeID, rev)
			return err
		})
	}
	return res, nil
}

// Get returns a locally stored review by id from any per-recipe list.
func (s *ReviewService) Get(ctx context.Context, reviewID string) (domain.Review, error) {
	keys, err := s.Store.Keys(ctx, storage.RecipeReviewsPrefix)
	if err != nil {
		return domain.Review{}, err
	}
	for _, key := range keys {
		for _, r := range storage.ReadList[domain.Review](ctx, s.Store, key) {
			if r.ID == reviewID {
				if r.RecipeID == "" {
					r.RecipeID = domain.FlexID(strings.TrimPrefix(key, storage.RecipeReviewsPrefix))
				}
				return r, nil
			}
		}
	}
	return domain.Review{}, ErrReviewNotFound
}

// ListForRecipe returns the reviews of one recipe. Local reviews come first;
// with remote sync enabled the remote reviews are appended, minus those
// matching a local review by id or by (author, rating, comment), which are
// the remote copies of reviews submitted here. A failed remote read is
// logged and the local list returned.
func (s *ReviewService) ListForRecipe(ctx context.Context, recipeID string) ([]domain.Review, error) {
	ctx, span := otel.Tracer("services/ReviewService").Start(ctx, "ListForRecipe",
		trace.WithAttributes(attribute.String("recipe.id", recipeID)),
	)
	defer span.End()

	recipeID, err := normalizeRecipeID(recipeID)
	if err != nil {
		return nil, err
	}
	local := storage.ReadList[domain.Review](ctx, s.Store, storage.RecipeReviewsKey(recipeID))
	if !s.remoteEnabled() {
		return local, nil
	}

	remoteList, err := s.Remote.ListReviews(ctx, recipeID)
	if err != nil {
		log.Warn().Err(err).Str("recipe_id", recipeID).Msg("reviews: remote read failed; serving local reviews")
		return local, nil
	}
	mirrored := make(map[string]struct{}, len(local))
	for _, r := range local {
		mirrored[authoredKey(r)] = struct{}{}
	}
	out := local
	for _, r := range remoteList {
		if _, dup := mirrored[authoredKey(r)]; dup {
			continue
		}
		if r.RecipeID == "" {
			r.RecipeID = domain.FlexID(recipeID)
		}
		out = append(out, r)
	}
	out = dedupeReviews(out)
	span.SetAttributes(attribute.Int("reviews.count", len(out)))
	return out, nil
}

func authoredKey(r domain.Review) string {
	return fmt.Sprintf("%s_%d_%s", r.UserIdentifier, r.Rating, r.Comment)
}

// ListUserReviews gathers every review authored by the current user from the
// per-user list and from a scan of all per-recipe lists. A review is the
// user's when its author is the user identifier or the profile username.
// Results are deduplicated by id, else by (recipe, rating, comment), and
// sorted newest first; reviews without a timestamp sort last.
func (s *ReviewService) ListUserReviews(ctx context.Context) ([]domain.Review, error) {
	ctx, span := otel.Tracer("services/ReviewService").Start(ctx, "ListUserReviews")
	defer span.End()

	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return nil, err
	}
	var username string
	if p, ok := storedProfile(ctx, s.Store); ok {
		username = strings.TrimSpace(p.Username)
	}
	names := s.favoriteNames(ctx, uid)

	var all []domain.Review
	for _, r := range storage.ReadList[domain.Review](ctx, s.Store, storage.UserReviewsKey(uid)) {
		if r.RecipeName == "" {
			r.RecipeName = nameOr(names, r.RecipeID.String())
		}
		all = append(all, r)
	}

	keys, err := s.Store.Keys(ctx, storage.RecipeReviewsPrefix)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		recipeID := strings.TrimPrefix(key, storage.RecipeReviewsPrefix)
		for _, r := range storage.ReadList[domain.Review](ctx, s.Store, key) {
			if r.UserIdentifier != uid && (username == "" || r.UserIdentifier != username) {
				continue
			}
			if r.RecipeID == "" {
				r.RecipeID = domain.FlexID(recipeID)
			}
			r.RecipeName = nameOr(names, r.RecipeID.String())
			all = append(all, r)
		}
	}

	out := dedupeReviews(all)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	span.SetAttributes(attribute.Int("reviews.count", len(out)))
	return out, nil
}

// Update changes a review's rating and comment. With remote sync enabled the
// remote API is authoritative and its errors surface; local copies are
// updated only after it succeeds.
func (s *ReviewService) Update(ctx context.Context, reviewID string, rating int, comment string) (domain.Review, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return domain.Review{}, ErrReviewNotFound
	}
	comment, err := s.validate(rating, comment)
	if err != nil {
		return domain.Review{}, err
	}

	if s.remoteEnabled() {
		if _, err := s.Remote.UpdateReview(ctx, reviewID, remote.ReviewUpdate{Rating: rating, Comment: comment}); err != nil {
			return domain.Review{}, mapRemoteReviewErr(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated, found, err := s.rewriteLocal(ctx, reviewID, func(r *domain.Review) bool {
		r.Rating = rating
		r.Comment = comment
		return true
	})
	if err != nil {
		return domain.Review{}, err
	}
	if !found {
		if s.remoteEnabled() {
			// Remote-only review: nothing to mirror locally.
			return domain.Review{ID: reviewID, Rating: rating, Comment: comment}, nil
		}
		return domain.Review{}, ErrReviewNotFound
	}
	return updated, nil
}

// Delete removes a review remotely (when enabled) and from local lists.
func (s *ReviewService) Delete(ctx context.Context, reviewID string) error {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return ErrReviewNotFound
	}
	if s.remoteEnabled() {
		if err := s.Remote.DeleteReview(ctx, reviewID); err != nil {
			return mapRemoteReviewErr(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, found, err := s.rewriteLocal(ctx, reviewID, func(*domain.Review) bool { return false })
	if err != nil {
		return err
	}
	if !found && !s.remoteEnabled() {
		return ErrReviewNotFound
	}
	return nil
}

// RecipeStats returns the locally cached aggregate of a recipe, computing it
// from the per-recipe list when no aggregate is stored.
func (s *ReviewService) RecipeStats(ctx context.Context, recipeID string) (domain.RecipeSummary, error) {
	recipeID, err := normalizeRecipeID(recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	var sum domain.RecipeSummary
	found, err := storage.ReadJSON(ctx, s.Store, storage.RecipeKey(recipeID), &sum)
	if err != nil {
		log.Warn().Err(err).Str("recipe_id", recipeID).Msg("reviews: unreadable recipe summary; recomputing")
		found = false
	}
	if !found {
		list := storage.ReadList[domain.Review](ctx, s.Store, storage.RecipeReviewsKey(recipeID))
		sum = domain.RecipeSummary{}
		sum.AverageRating, sum.ReviewCount = aggregate(list)
	}
	sum.ID = domain.FlexID(recipeID)
	return sum, nil
}

// validate checks rating and comment and returns the normalized comment.
func (s *ReviewService) validate(rating int, comment string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", ErrInvalidRating
	}
	comment = norm.NFC.String(strings.TrimSpace(comment))
	limit := s.MaxCommentRunes
	if limit <= 0 {
		limit = MaxCommentRunes
	}
	if utf8.RuneCountInString(comment) > limit {
		return "", ErrCommentTooLong
	}
	return comment, nil
}

// appendRecipeReview appends rev to its recipe list and rewrites the recipe
// aggregate, preserving unrelated fields already stored there.
func (s *ReviewService) appendRecipeReview(ctx context.Context, rev domain.Review) (domain.RecipeSummary, error) {
	recipeID := rev.RecipeID.String()
	list := storage.ReadList[domain.Review](ctx, s.Store, storage.RecipeReviewsKey(recipeID))
	list = append(list, rev)
	if err := storage.WriteJSON(ctx, s.Store, storage.RecipeReviewsKey(recipeID), list); err != nil {
		return domain.RecipeSummary{}, err
	}
	return s.writeSummary(ctx, recipeID, list)
}

func (s *ReviewService) writeSummary(ctx context.Context, recipeID string, list []domain.Review) (domain.RecipeSummary, error) {
	key := storage.RecipeKey(recipeID)
	doc := map[string]json.RawMessage{}
	if _, err := storage.ReadJSON(ctx, s.Store, key, &doc); err != nil || doc == nil {
		doc = map[string]json.RawMessage{}
	}

	avg, n := aggregate(list)
	sum := domain.RecipeSummary{ID: domain.FlexID(recipeID), AverageRating: avg, ReviewCount: n}
	if raw, ok := doc["name"]; ok {
		_ = json.Unmarshal(raw, &sum.Name)
	}
	doc["id"], _ = json.Marshal(recipeID)
	doc["average_rating"], _ = json.Marshal(avg)
	doc["review_count"], _ = json.Marshal(n)
	if err := storage.WriteJSON(ctx, s.Store, key, doc); err != nil {
		return sum, err
	}
	return sum, nil
}

func (s *ReviewService) appendUserReview(ctx context.Context, uid string, rev domain.Review) error {
	key := storage.UserReviewsKey(uid)
	list := storage.ReadList[domain.Review](ctx, s.Store, key)
	return storage.WriteJSON(ctx, s.Store, key, append(list, rev))
}

// rewriteLocal applies fn to every local copy of reviewID (fn returning false
// deletes the copy) and recomputes affected recipe aggregates. Callers hold s.mu.
func (s *ReviewService) rewriteLocal(ctx context.Context, reviewID string, fn func(*domain.Review) bool) (domain.Review, bool, error) {
	var (
		last  domain.Review
		found bool
	)
	keys, err := s.Store.Keys(ctx, storage.RecipeReviewsPrefix)
	if err != nil {
		return last, false, err
	}
	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return last, false, err
	}
	keys = append(keys, storage.UserReviewsKey(uid))

	for _, key := range keys {
		list := storage.ReadList[domain.Review](ctx, s.Store, key)
		next := list[:0:0]
		hit := false
		for _, r := range list {
			if r.ID != reviewID {
				next = append(next, r)
				continue
			}
			hit = true
			if fn(&r) {
				next = append(next, r)
				last = r
			}
		}
		if !hit {
			continue
		}
		found = true
		if err := storage.WriteJSON(ctx, s.Store, key, next); err != nil {
			return last, found, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if strings.HasPrefix(key, storage.RecipeReviewsPrefix) {
			recipeID := strings.TrimPrefix(key, storage.RecipeReviewsPrefix)
			if _, err := s.writeSummary(ctx, recipeID, next); err != nil {
				log.Warn().Err(err).Str("recipe_id", recipeID).Msg("reviews: summary rewrite failed")
			}
		}
	}
	return last, found, nil
}

// recipeName resolves a recipe name from the user's favorites snapshots or
// the cached recipe summary.
func (s *ReviewService) recipeName(ctx context.Context, uid, recipeID string) string {
	if n, ok := s.favoriteNames(ctx, uid)[recipeID]; ok {
		return n
	}
	var sum domain.RecipeSummary
	if ok, err := storage.ReadJSON(ctx, s.Store, storage.RecipeKey(recipeID), &sum); ok && err == nil {
		return sum.Name
	}
	return ""
}

func (s *ReviewService) favoriteNames(ctx context.Context, uid string) map[string]string {
	favs := storage.ReadList[domain.Favorite](ctx, s.Store, storage.FavoritesKey(uid))
	out := make(map[string]string, len(favs))
	for _, f := range favs {
		if f.Name != "" {
			out[f.RecipeID.String()] = f.Name
		}
	}
	return out
}

func (s *ReviewService) remoteEnabled() bool { return s.RemoteSync && s.Remote != nil }

func (s *ReviewService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func nameOr(names map[string]string, recipeID string) string {
	if n, ok := names[recipeID]; ok {
		return n
	}
	return UnknownRecipeName
}

// aggregate returns the mean rating and count of list.
func aggregate(list []domain.Review) (float64, int) {
	if len(list) == 0 {
		return 0, 0
	}
	total := 0
	for _, r := range list {
		total += r.Rating
	}
	return float64(total) / float64(len(list)), len(list)
}

// dedupeReviews keeps the first review per id, or per (recipe, rating,
// comment) when the id is empty.
func dedupeReviews(in []domain.Review) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		key := "id:" + r.ID
		if r.ID == "" {
			key = fmt.Sprintf("c:%s_%d_%s", r.RecipeID, r.Rating, r.Comment)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func mapRemoteReviewErr(err error) error {
	if remote.StatusCode(err) == http.StatusNotFound {
		return ErrReviewNotFound
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}
