// Favorite HTTP handlers.
//
//   - GET  /favorites                      (list or ?q= search, weak ETag)
//   - POST /favorites/{recipeId}/toggle    (add/remove, optional snapshot body)
//   - GET  /favorites/{recipeId}           (membership check)
//   - GET  /favorites/events               (server-sent change events)
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/storage"
	"github.com/tbourn/go-recipe-backend/internal/utils"
)

// ListFavoritesResponse wraps the favorites list.
type ListFavoritesResponse struct {
	Favorites []domain.Favorite `json:"favorites"`
	Count     int               `json:"count"`
}

// ToggleFavoriteResponse reports the toggle outcome. Sync is present only
// with ?wait_sync=true.
type ToggleFavoriteResponse struct {
	RecipeID  string            `json:"recipe_id"`
	Added     bool              `json:"added"`
	Favorites []domain.Favorite `json:"favorites"`
	Sync      *SyncStatus       `json:"sync,omitempty"`
}

// FavoriteStatusResponse is the membership answer for one recipe.
type FavoriteStatusResponse struct {
	RecipeID  string `json:"recipe_id"`
	Favorited bool   `json:"favorited"`
}

// ListFavorites godoc
// @ID          listFavorites
// @Summary     List favorites
// @Description Local favorites first; the remote API is read only when the local list is empty. With q, favorites are ranked by snapshot text. Supports weak ETag via If-None-Match.
// @Tags        Favorites
// @Produce     json
// @Param       q              query   string  false "Search text"
// @Param       limit          query   int     false "Max search results" minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListFavoritesResponse
// @Success     304  {string}  string "Not Modified"
// @Failure     502  {object}  handlers.ErrorResponse "Remote unavailable and nothing stored locally"
// @Router      /favorites [get]
func (h *Handlers) ListFavorites(c *gin.Context) {
	ctx := c.Request.Context()

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		k := utils.Clamp(utils.AtoiDefault(c.Query("limit"), 20), 1, 100)
		list, err := h.favs.Search(ctx, q, k)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, http.StatusOK, ListFavoritesResponse{Favorites: list, Count: len(list)})
		return
	}

	list, err := h.favs.List(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	if etag := h.favoritesETag(c); etag != "" {
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}
	ok(c, http.StatusOK, ListFavoritesResponse{Favorites: list, Count: len(list)})
}

// favoritesETag derives a weak ETag from the stored list's size and mtime.
func (h *Handlers) favoritesETag(c *gin.Context) string {
	if h.store == nil {
		return ""
	}
	key, err := h.favs.ListKey(c.Request.Context())
	if err != nil {
		return ""
	}
	info, err := h.store.Stat(c.Request.Context(), key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return `W/"favorites:0:0"`
	case err != nil:
		return ""
	}
	return fmt.Sprintf(`W/"favorites:%d:%d"`, info.Size, info.UpdatedAt.UnixNano())
}

// ToggleFavorite godoc
// @ID          toggleFavorite
// @Summary     Toggle a favorite
// @Description Removes the recipe from the favorites if present, otherwise adds it with the optional snapshot. The local change is final; remote sync runs afterwards and never reverts it.
// @Tags        Favorites
// @Accept      json
// @Produce     json
// @Param       recipeId   path    string                 true  "Recipe ID"
// @Param       wait_sync  query   bool                   false "Wait for the remote sync outcome"
// @Param       body       body    domain.RecipeSnapshot  false "Recipe snapshot stored with the favorite"
// @Success     200  {object}  handlers.ToggleFavoriteResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Storage failure"
// @Router      /favorites/{recipeId}/toggle [post]
func (h *Handlers) ToggleFavorite(c *gin.Context) {
	recipeID := c.Param("recipeId")

	snap, err := readSnapshot(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	res, err := h.favs.Toggle(c.Request.Context(), recipeID, snap)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ToggleFavoriteResponse{
		RecipeID:  strings.TrimSpace(recipeID),
		Added:     res.Added,
		Favorites: res.Favorites,
		Sync:      waitSync(c, res.Sync),
	})
}

// readSnapshot decodes an optional RecipeSnapshot body; an empty body is nil.
func readSnapshot(c *gin.Context) (*domain.RecipeSnapshot, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var snap domain.RecipeSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetFavoriteStatus godoc
// @ID          getFavoriteStatus
// @Summary     Is a recipe favorited?
// @Tags        Favorites
// @Produce     json
// @Param       recipeId  path  string  true  "Recipe ID"
// @Success     200  {object}  handlers.FavoriteStatusResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /favorites/{recipeId} [get]
func (h *Handlers) GetFavoriteStatus(c *gin.Context) {
	recipeID := c.Param("recipeId")
	fav, err := h.favs.IsFavorited(c.Request.Context(), recipeID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, FavoriteStatusResponse{RecipeID: strings.TrimSpace(recipeID), Favorited: fav})
}

// FavoriteEvents godoc
// @ID          favoriteEvents
// @Summary     Stream favorites changes
// @Description Server-sent events; one "favorites" event per change, carrying the new list. Comment lines keep idle connections open.
// @Tags        Favorites
// @Produce     text/event-stream
// @Success     200  {string}  string "event stream"
// @Router      /favorites/events [get]
func (h *Handlers) FavoriteEvents(c *gin.Context) {
	uid := userID(c)
	ch := make(chan events.FavoritesChanged, 16)
	unsubscribe := h.favs.Subscribe(func(ev events.FavoritesChanged) {
		if uid != "" && ev.UserID != uid {
			return
		}
		select {
		case ch <- ev:
		default:
			// Slow reader: drop rather than block the publisher.
		}
	})
	defer unsubscribe()

	// Event streams outlive the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev := <-ch:
			c.SSEvent("favorites", ev)
			c.Writer.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
