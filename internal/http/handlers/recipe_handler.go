// Recipe and cache HTTP handlers.
//
//   - GET    /recipes          (paginated, filtered; served through the query cache)
//   - GET    /recipes/{id}     (detail with local review aggregate)
//   - GET    /categories
//   - GET    /cache/stats
//   - DELETE /cache            (?pattern= regexp; everything when empty)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/remote"
	"github.com/tbourn/go-recipe-backend/internal/utils"
)

// CategoriesResponse wraps the category list.
type CategoriesResponse struct {
	Categories []domain.Category `json:"categories"`
}

// InvalidateCacheResponse reports how many cache entries were dropped.
type InvalidateCacheResponse struct {
	Removed int `json:"removed"`
}

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List recipes
// @Tags        Recipes
// @Produce     json
// @Param       category    query  string  false "Category (\"all\" for none)"
// @Param       difficulty  query  string  false "Difficulty"
// @Param       search      query  string  false "Search text"
// @Param       sort        query  string  false "Sort order"
// @Param       page        query  int     false "Page number"     minimum(1) default(1)
// @Param       limit       query  int     false "Items per page"  minimum(1) maximum(100) default(12)
// @Success     200  {object}  remote.RecipePage
// @Failure     502  {object}  handlers.ErrorResponse "Remote unavailable"
// @Router      /recipes [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	page, limit := utils.PageParams(c.Query("page"), c.Query("limit"), 12, 100)
	q := remote.RecipeQuery{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		Page:       page,
		Limit:      limit,
	}
	res, err := h.recipes.List(c.Request.Context(), q)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Recipe detail
// @Tags        Recipes
// @Produce     json
// @Param       id  path  string  true  "Recipe ID"
// @Success     200  {object}  domain.Recipe
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     502  {object}  handlers.ErrorResponse "Remote unavailable"
// @Router      /recipes/{id} [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	r, err := h.recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListCategories godoc
// @ID          listCategories
// @Summary     Recipe categories
// @Tags        Recipes
// @Produce     json
// @Success     200  {object}  handlers.CategoriesResponse
// @Failure     502  {object}  handlers.ErrorResponse "Remote unavailable"
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	cats, err := h.recipes.Categories(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CategoriesResponse{Categories: cats})
}

// CacheStats godoc
// @ID          cacheStats
// @Summary     Query cache statistics
// @Tags        Cache
// @Produce     json
// @Success     200  {object}  querycache.Stats
// @Router      /cache/stats [get]
func (h *Handlers) CacheStats(c *gin.Context) {
	if h.cache == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "cache not configured")
		return
	}
	ok(c, http.StatusOK, h.cache.Stats())
}

// InvalidateCache godoc
// @ID          invalidateCache
// @Summary     Invalidate cached remote reads
// @Description Drops entries whose key matches the regular expression; all entries when pattern is empty. In-flight requests are unaffected.
// @Tags        Cache
// @Produce     json
// @Param       pattern  query  string  false "Regular expression over cache keys"
// @Success     200  {object}  handlers.InvalidateCacheResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid pattern"
// @Router      /cache [delete]
func (h *Handlers) InvalidateCache(c *gin.Context) {
	n, err := h.recipes.Refresh(c.Query("pattern"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, InvalidateCacheResponse{Removed: n})
}
