// README: Order handlers for customer checkout, listing and cancellation.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"village/internal/http/middleware"
	"village/internal/modules/order"
	"village/internal/modules/pricing"
	"village/internal/modules/user"
	"village/internal/types"
)

type OrderHandler struct {
	order    *order.Service
	profiles *user.Service
}

func NewOrderHandler(svc *order.Service, profiles *user.Service) *OrderHandler {
	return &OrderHandler{order: svc, profiles: profiles}
}

// pointReq is either an explicit coordinate or the label of a saved address.
type pointReq struct {
	Name  string   `json:"name"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Label string   `json:"address_label"`
}

type shoppingReq struct {
	Drop pointReq `json:"drop"`
}

type transportReq struct {
	Pickup  pointReq `json:"pickup"`
	Drop    pointReq `json:"drop"`
	Vehicle string   `json:"vehicle"`
}

type serviceReq struct {
	ServiceType   string   `json:"service_type"`
	Description   string   `json:"description"`
	Address       pointReq `json:"address"`
	PreferredTime string   `json:"preferred_time"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Shopping handles POST /api/orders/shopping; the session cart is the order.
func (h *OrderHandler) Shopping(c *gin.Context) {
	var req shoppingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	drop, ok := h.resolvePoint(c, req.Drop, "drop")
	if !ok {
		return
	}
	o, err := h.order.PlaceShopping(c.Request.Context(), order.PlaceShoppingCommand{
		SessionID: middleware.SessionID(c),
		Customer:  customer(c),
		Drop:      drop,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

// Transport handles POST /api/orders/transport.
func (h *OrderHandler) Transport(c *gin.Context) {
	var req transportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := pricing.ParseVehicle(req.Vehicle)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	pickup, ok := h.resolvePoint(c, req.Pickup, "pickup")
	if !ok {
		return
	}
	drop, ok := h.resolvePoint(c, req.Drop, "drop")
	if !ok {
		return
	}
	o, err := h.order.PlaceTransport(c.Request.Context(), order.PlaceTransportCommand{
		Customer: customer(c),
		Pickup:   pickup,
		Drop:     drop,
		Vehicle:  v,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

// Service handles POST /api/orders/service.
func (h *OrderHandler) Service(c *gin.Context) {
	var req serviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	addr, ok := h.resolvePoint(c, req.Address, "address")
	if !ok {
		return
	}
	o, err := h.order.PlaceService(c.Request.Context(), order.PlaceServiceCommand{
		Customer:      customer(c),
		ServiceType:   req.ServiceType,
		Description:   req.Description,
		Address:       addr,
		PreferredTime: strings.TrimSpace(req.PreferredTime),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

// List handles GET /api/orders, newest first.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.order.ListByCustomer(c.Request.Context(), middleware.CallerUID(c), queryLimit(c, 0))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.order.GetForCustomer(c.Request.Context(), types.ID(id), middleware.CallerUID(c))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// Cancel handles POST /api/orders/:id/cancel. The body is optional.
func (h *OrderHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req cancelReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID:    types.ID(id),
		CustomerID: middleware.CallerUID(c),
		Reason:     req.Reason,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// resolvePoint writes a 400 and reports false when p names neither a
// coordinate nor a saved address.
func (h *OrderHandler) resolvePoint(c *gin.Context, p pointReq, field string) (types.GeoPoint, bool) {
	if p.Lat != nil && p.Lng != nil {
		gp := types.NewGeoPoint(strings.TrimSpace(p.Name), *p.Lat, *p.Lng)
		if !gp.Valid() {
			writeError(c, http.StatusBadRequest, field+" out of range")
			return types.GeoPoint{}, false
		}
		return gp, true
	}
	if p.Label == "" || h.profiles == nil {
		writeError(c, http.StatusBadRequest, "missing "+field)
		return types.GeoPoint{}, false
	}
	profile, err := h.profiles.GetProfile(c.Request.Context(), middleware.CallerIdentity(c))
	if err != nil {
		writeProfileError(c, err)
		return types.GeoPoint{}, false
	}
	a, ok := profile.Address(p.Label)
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown address "+p.Label)
		return types.GeoPoint{}, false
	}
	return a.Point, true
}

func customer(c *gin.Context) order.Customer {
	id := middleware.CallerIdentity(c)
	return order.Customer{UserID: id.UserID, Name: id.Name, Phone: id.Phone, Village: id.Village}
}
