// README: Directory handlers; village shops and Places location search.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"village/internal/maps"
	"village/internal/modules/catalog"
	"village/internal/types"
)

const maxPlaces = 10

type DirectoryHandler struct {
	catalog *catalog.Catalog
	places  *maps.PlacesService
}

// NewDirectoryHandler accepts a nil places service; search then answers 503.
func NewDirectoryHandler(cat *catalog.Catalog, places *maps.PlacesService) *DirectoryHandler {
	return &DirectoryHandler{catalog: cat, places: places}
}

// Shops handles GET /api/shops. With lat/lng the shops come back nearest first.
func (h *DirectoryHandler) Shops(c *gin.Context) {
	if c.Query("lat") == "" && c.Query("lng") == "" {
		writeJSON(c, http.StatusOK, gin.H{"shops": h.catalog.Shops()})
		return
	}
	p, ok := queryPoint(c, "lat", "lng")
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid coordinates")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"shops": h.catalog.Nearest(p, queryLimit(c, 0))})
}

// Places handles GET /api/places.
func (h *DirectoryHandler) Places(c *gin.Context) {
	if h.places == nil {
		writeError(c, http.StatusServiceUnavailable, "location search not configured")
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing q")
		return
	}
	var near *types.GeoPoint
	if p, ok := queryPoint(c, "lat", "lng"); ok {
		near = &p
	}
	places, err := h.places.Search(c.Request.Context(), q, near, maxPlaces)
	if err != nil {
		writeInternal(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"places": places})
}
