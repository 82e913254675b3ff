// Identity and profile HTTP handlers.
//
//   - GET /me        (current user identifier)
//   - GET /profile
//   - PUT /profile
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// MeResponse carries the current user identifier.
type MeResponse struct {
	UserIdentifier string `json:"user_identifier" example:"user_1729238400000_k3j9x0a1b"`
}

// ProfileRequest is the JSON payload of a profile update.
type ProfileRequest struct {
	Username string `json:"username" example:"Budi"`
	Bio      string `json:"bio" example:"Suka masak rendang"`
	// Avatar is an optional data:image/...;base64 URL of at most 2MB.
	Avatar string `json:"avatar,omitempty"`
}

// Me godoc
// @ID          me
// @Summary     Current user identifier
// @Tags        Profile
// @Produce     json
// @Success     200  {object}  handlers.MeResponse
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	ok(c, http.StatusOK, MeResponse{UserIdentifier: userID(c)})
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Local profile
// @Tags        Profile
// @Produce     json
// @Success     200  {object}  domain.Profile
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the local profile
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ProfileRequest  true  "Profile"
// @Success     200  {object}  domain.Profile
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Router      /profile [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.profiles.Save(c.Request.Context(), domain.Profile{
		Username: req.Username,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}
