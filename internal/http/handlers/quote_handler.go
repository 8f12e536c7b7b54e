// README: Quote handlers for ride fares and delivery charges.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"village/internal/modules/catalog"
	"village/internal/modules/pricing"
)

type QuoteHandler struct {
	pricing *pricing.Service
	catalog *catalog.Catalog
}

func NewQuoteHandler(p *pricing.Service, cat *catalog.Catalog) *QuoteHandler {
	return &QuoteHandler{pricing: p, catalog: cat}
}

// Ride handles GET /api/quotes/ride.
func (h *QuoteHandler) Ride(c *gin.Context) {
	from, ok := queryPoint(c, "from_lat", "from_lng")
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid pickup coordinates")
		return
	}
	to, ok := queryPoint(c, "to_lat", "to_lng")
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid drop coordinates")
		return
	}
	v, err := pricing.ParseVehicle(c.Query("vehicle"))
	if err != nil {
		writePricingError(c, err)
		return
	}
	q, err := h.pricing.QuoteRide(c.Request.Context(), from, to, v)
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// Delivery handles GET /api/quotes/delivery.
func (h *QuoteHandler) Delivery(c *gin.Context) {
	shop, ok := h.catalog.Shop(c.Query("shop_id"))
	if !ok {
		writeError(c, http.StatusNotFound, "unknown shop")
		return
	}
	to, ok := queryPoint(c, "to_lat", "to_lng")
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid drop coordinates")
		return
	}
	q, err := h.pricing.QuoteDelivery(c.Request.Context(), shop.Location, to)
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}
