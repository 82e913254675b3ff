package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/services"
)

func TestSubmitReview_CreatedAndIdempotentReplay(t *testing.T) {
	revs := &stubReviews{summary: domain.RecipeSummary{ID: "r1", AverageRating: 4, ReviewCount: 1}}
	idem := &memIdem{}
	r := newTestRouter(newHandlers(Deps{Reviews: revs, Idempotency: idem}))
	hdr := map[string]string{"Idempotency-Key": "retry-1"}

	w := do(t, r, http.MethodPost, "/recipes/r1/reviews?wait_sync=true", ReviewRequest{Rating: 4, Comment: "mantap"}, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	first := decode[SubmitReviewResponse](t, w)
	if first.Review.ID == "" || first.Summary.ReviewCount != 1 {
		t.Fatalf("unexpected body: %+v", first)
	}
	if first.Sync == nil || !first.Sync.OK {
		t.Fatalf("expected successful sync status, got %+v", first.Sync)
	}

	w = do(t, r, http.MethodPost, "/recipes/r1/reviews", ReviewRequest{Rating: 4, Comment: "mantap"}, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("replay status=%d", w.Code)
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("missing Idempotency-Replayed header")
	}
	again := decode[SubmitReviewResponse](t, w)
	if again.Review.ID != first.Review.ID {
		t.Fatalf("replay returned %q; want %q", again.Review.ID, first.Review.ID)
	}
	if revs.submits != 1 {
		t.Fatalf("Submit called %d times; want 1", revs.submits)
	}

	// Same key on another recipe is a different request.
	w = do(t, r, http.MethodPost, "/recipes/r2/reviews", ReviewRequest{Rating: 5}, hdr)
	if w.Code != http.StatusCreated || revs.submits != 2 {
		t.Fatalf("status=%d submits=%d", w.Code, revs.submits)
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		body     any
		wantCode string
	}{
		{"missing rating", nil, map[string]any{"comment": "x"}, ErrCodeBadRequest},
		{"rating out of range", services.ErrInvalidRating, ReviewRequest{Rating: 9}, ErrCodeInvalidRating},
		{"comment too long", services.ErrCommentTooLong, ReviewRequest{Rating: 3, Comment: "long"}, ErrCodeCommentTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			revs := &stubReviews{submitErr: tc.err}
			w := do(t, newTestRouter(newHandlers(Deps{Reviews: revs})), http.MethodPost, "/recipes/r1/reviews", tc.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", w.Code)
			}
			if er := decode[ErrorResponse](t, w); er.Code != tc.wantCode {
				t.Fatalf("code = %q; want %q", er.Code, tc.wantCode)
			}
		})
	}
}

func TestSubmitReview_StorageFailure(t *testing.T) {
	revs := &stubReviews{submitErr: services.ErrStorage}
	w := do(t, newTestRouter(newHandlers(Deps{Reviews: revs})), http.MethodPost, "/recipes/r1/reviews", ReviewRequest{Rating: 3}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if er := decode[ErrorResponse](t, w); er.Code != ErrCodeStorage {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestListRecipeReviews_AndStats(t *testing.T) {
	revs := &stubReviews{
		forRecipe: []domain.Review{{ID: "a", Rating: 5}, {ID: "b", Rating: 3}},
		summary:   domain.RecipeSummary{ID: "r1", AverageRating: 4, ReviewCount: 2},
	}
	r := newTestRouter(newHandlers(Deps{Reviews: revs}))

	w := do(t, r, http.MethodGet, "/recipes/r1/reviews", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	body := decode[RecipeReviewsResponse](t, w)
	if len(body.Reviews) != 2 || body.Summary.AverageRating != 4 {
		t.Fatalf("unexpected body: %+v", body)
	}

	w = do(t, r, http.MethodGet, "/recipes/r1/stats", nil, nil)
	if sum := decode[domain.RecipeSummary](t, w); sum.ReviewCount != 2 {
		t.Fatalf("unexpected stats: %+v", sum)
	}
}

func TestUpdateAndDeleteReview(t *testing.T) {
	revs := &stubReviews{}
	r := newTestRouter(newHandlers(Deps{Reviews: revs}))

	w := do(t, r, http.MethodPut, "/reviews/rev-1", ReviewRequest{Rating: 2, Comment: "meh"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d", w.Code)
	}
	if got := decode[domain.Review](t, w); got.ID != "rev-1" || got.Rating != 2 {
		t.Fatalf("unexpected review: %+v", got)
	}

	w = do(t, r, http.MethodDelete, "/reviews/rev-1", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}

	revs.updateErr = services.ErrReviewNotFound
	revs.deleteErr = services.ErrRemoteUnavailable
	if w := do(t, r, http.MethodPut, "/reviews/nope", ReviewRequest{Rating: 2}, nil); w.Code != http.StatusNotFound {
		t.Fatalf("update missing: status=%d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, "/reviews/rev-1", nil, nil); w.Code != http.StatusBadGateway {
		t.Fatalf("delete remote down: status=%d", w.Code)
	}
}

func TestListMyReviews_EmptyIsArray(t *testing.T) {
	w := do(t, newTestRouter(newHandlers(Deps{})), http.MethodGet, "/me/reviews", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Body.String(); got != `{"reviews":[],"count":0}` {
		t.Fatalf("body = %s", got)
	}
}
