// README: Profile handlers; the caller's Firestore profile and saved addresses.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"village/internal/http/middleware"
	"village/internal/modules/user"
	"village/internal/types"
)

type ProfileHandler struct {
	users *user.Service
}

func NewProfileHandler(svc *user.Service) *ProfileHandler {
	return &ProfileHandler{users: svc}
}

type addressReq struct {
	Label string  `json:"label"`
	Line  string  `json:"line"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Me handles GET /api/me.
func (h *ProfileHandler) Me(c *gin.Context) {
	p, err := h.users.GetProfile(c.Request.Context(), middleware.CallerIdentity(c))
	if err != nil {
		writeProfileError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

// SaveAddress handles PUT /api/me/addresses; an existing label is replaced.
func (h *ProfileHandler) SaveAddress(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.users.SaveAddress(c.Request.Context(), middleware.CallerIdentity(c), user.Address{
		Label: req.Label,
		Line:  req.Line,
		Point: types.NewGeoPoint("", req.Lat, req.Lng),
	})
	if err != nil {
		writeProfileError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *ProfileHandler) RemoveAddress(c *gin.Context) {
	p, err := h.users.RemoveAddress(c.Request.Context(), middleware.CallerIdentity(c), c.Param("label"))
	if err != nil {
		writeProfileError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}
