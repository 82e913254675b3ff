// Review HTTP handlers.
//
//   - GET    /recipes/{id}/reviews   (local reviews of a recipe + aggregate)
//   - POST   /recipes/{id}/reviews   (submit; Idempotency-Key replays the first review)
//   - GET    /recipes/{id}/stats     (local aggregate)
//   - PUT    /reviews/{id}           (update)
//   - DELETE /reviews/{id}           (delete)
//   - GET    /me/reviews             (everything the current user wrote)
//
// Idempotency:
// When the client sends an Idempotency-Key and a review was already created
// for (user, recipe, key), the handler answers with that review and sets
// `Idempotency-Replayed: true` instead of storing a second one.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
)

// ReviewRequest is the JSON payload for creating or updating a review.
type ReviewRequest struct {
	// Rating is an integer from 1 to 5.
	Rating int `json:"rating" binding:"required" example:"5"`
	// Comment is optional, at most 500 characters.
	Comment string `json:"comment" example:"Enak sekali!"`
}

// SubmitReviewResponse carries the stored review and the new aggregate.
type SubmitReviewResponse struct {
	Review  domain.Review        `json:"review"`
	Summary domain.RecipeSummary `json:"summary"`
	Sync    *SyncStatus          `json:"sync,omitempty"`
}

// RecipeReviewsResponse lists a recipe's local reviews with their aggregate.
type RecipeReviewsResponse struct {
	Reviews []domain.Review      `json:"reviews"`
	Summary domain.RecipeSummary `json:"summary"`
}

// UserReviewsResponse lists the current user's reviews, newest first.
type UserReviewsResponse struct {
	Reviews []domain.Review `json:"reviews"`
	Count   int             `json:"count"`
}

// ListRecipeReviews godoc
// @ID          listRecipeReviews
// @Summary     List a recipe's reviews
// @Tags        Reviews
// @Produce     json
// @Param       id  path  string  true  "Recipe ID"
// @Success     200  {object}  handlers.RecipeReviewsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /recipes/{id}/reviews [get]
func (h *Handlers) ListRecipeReviews(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.reviews.ListForRecipe(ctx, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	sum, err := h.reviews.RecipeStats(ctx, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	if list == nil {
		list = []domain.Review{}
	}
	ok(c, http.StatusOK, RecipeReviewsResponse{Reviews: list, Summary: sum})
}

// RecipeStats godoc
// @ID          recipeStats
// @Summary     Local review aggregate of a recipe
// @Tags        Reviews
// @Produce     json
// @Param       id  path  string  true  "Recipe ID"
// @Success     200  {object}  domain.RecipeSummary
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /recipes/{id}/stats [get]
func (h *Handlers) RecipeStats(c *gin.Context) {
	sum, err := h.reviews.RecipeStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sum)
}

// SubmitReview godoc
// @ID          submitReview
// @Summary     Submit a review
// @Description Validates before any write, stores the review locally (per recipe and per user) and pushes it to the remote API in the background. Supports Idempotency-Key.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Param       id               path    string                   true  "Recipe ID"
// @Param       Idempotency-Key  header  string                   false "Idempotency key for safe retries"
// @Param       wait_sync        query   bool                     false "Wait for the remote sync outcome"
// @Param       body             body    handlers.ReviewRequest   true  "Review"
// @Success     201  {object}  handlers.SubmitReviewResponse
// @Success     200  {object}  handlers.SubmitReviewResponse "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse "Storage failure"
// @Router      /recipes/{id}/reviews [post]
func (h *Handlers) SubmitReview(c *gin.Context) {
	ctx := c.Request.Context()
	recipeID := c.Param("id")

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: rating required")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil {
		if reviewID, found := h.idem.Lookup(ctx, userID(c), recipeID, idemKey); found {
			if prev, err := h.reviews.Get(ctx, reviewID); err == nil {
				sum, _ := h.reviews.RecipeStats(ctx, recipeID)
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, SubmitReviewResponse{Review: prev, Summary: sum})
				return
			}
		}
	}

	res, err := h.reviews.Submit(ctx, recipeID, req.Rating, req.Comment)
	if err != nil {
		failErr(c, err)
		return
	}

	if idemKey != "" && h.idem != nil {
		if err := h.idem.Remember(ctx, userID(c), recipeID, idemKey, res.Review.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, SubmitReviewResponse{
		Review:  res.Review,
		Summary: res.Summary,
		Sync:    waitSync(c, res.Sync),
	})
}

// UpdateReview godoc
// @ID          updateReview
// @Summary     Update a review
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Param       id    path  string                  true  "Review ID"
// @Param       body  body  handlers.ReviewRequest  true  "New rating and comment"
// @Success     200  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse "Review not found"
// @Failure     502  {object}  handlers.ErrorResponse "Remote unavailable"
// @Router      /reviews/{id} [put]
func (h *Handlers) UpdateReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: rating required")
		return
	}
	rev, err := h.reviews.Update(c.Request.Context(), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, rev)
}

// DeleteReview godoc
// @ID          deleteReview
// @Summary     Delete a review
// @Tags        Reviews
// @Param       id  path  string  true  "Review ID"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Review not found"
// @Failure     502  {object}  handlers.ErrorResponse "Remote unavailable"
// @Router      /reviews/{id} [delete]
func (h *Handlers) DeleteReview(c *gin.Context) {
	if err := h.reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ListMyReviews godoc
// @ID          listMyReviews
// @Summary     Reviews written by the current user
// @Description Merges the per-user list with a scan of all per-recipe lists, deduplicated and newest first.
// @Tags        Reviews
// @Produce     json
// @Success     200  {object}  handlers.UserReviewsResponse
// @Router      /me/reviews [get]
func (h *Handlers) ListMyReviews(c *gin.Context) {
	list, err := h.reviews.ListUserReviews(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	if list == nil {
		list = []domain.Review{}
	}
	ok(c, http.StatusOK, UserReviewsResponse{Reviews: list, Count: len(list)})
}
