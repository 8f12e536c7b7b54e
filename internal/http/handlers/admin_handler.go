// README: Admin/team handlers; order queue by status and timeline appends.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"village/internal/http/middleware"
	"village/internal/modules/order"
	"village/internal/types"
)

type AdminHandler struct {
	order *order.Service
}

func NewAdminHandler(svc *order.Service) *AdminHandler {
	return &AdminHandler{order: svc}
}

type appendStatusReq struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// List handles GET /api/admin/orders. Without ?status every order is listed.
func (h *AdminHandler) List(c *gin.Context) {
	status := order.StatusNone
	if raw := c.Query("status"); raw != "" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			writeOrderError(c, err)
			return
		}
		status = st
	}
	orders, err := h.order.ListByStatus(c.Request.Context(), status, queryLimit(c, 0))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

// Get handles GET /api/admin/orders/:id and includes the event history.
func (h *AdminHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	events, err := h.order.History(c.Request.Context(), o.ID)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order": o, "events": events})
}

// AppendStatus handles POST /api/admin/orders/:id/status.
func (h *AdminHandler) AppendStatus(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req appendStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	st, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid status")
		return
	}
	o, err := h.order.AppendStatus(c.Request.Context(), order.AppendStatusCommand{
		OrderID:   types.ID(id),
		Status:    st,
		Note:      req.Note,
		ActorType: middleware.CallerRole(c),
		ActorID:   middleware.CallerUID(c),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
