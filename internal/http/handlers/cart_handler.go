// README: Cart handlers; each request applies one mutation to the session's cart-state cell.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"village/internal/http/middleware"
	"village/internal/modules/cart"
	"village/internal/modules/catalog"
)

type CartHandler struct {
	cart    *cart.Service
	catalog *catalog.Catalog
}

func NewCartHandler(svc *cart.Service, cat *catalog.Catalog) *CartHandler {
	return &CartHandler{cart: svc, catalog: cat}
}

type addItemReq struct {
	ProductID string `json:"product_id"`
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

type customOrderReq struct {
	Text   string `json:"text"`
	ShopID string `json:"shop_id"`
}

func (h *CartHandler) Get(c *gin.Context) {
	ct, err := h.cart.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeCartError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, ct)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.ProductID) {
		writeError(c, http.StatusBadRequest, "invalid product_id")
		return
	}
	h.respond(c)(h.cart.AddItem(c.Request.Context(), middleware.SessionID(c), req.ProductID))
}

func (h *CartHandler) Increment(c *gin.Context) {
	id, ok := h.productParam(c)
	if !ok {
		return
	}
	h.respond(c)(h.cart.Increment(c.Request.Context(), middleware.SessionID(c), id))
}

func (h *CartHandler) Decrement(c *gin.Context) {
	id, ok := h.productParam(c)
	if !ok {
		return
	}
	h.respond(c)(h.cart.Decrement(c.Request.Context(), middleware.SessionID(c), id))
}

// UpdateQuantity handles PUT /api/cart/items/:id. A quantity of 0 or less
// removes the line.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	id, ok := h.productParam(c)
	if !ok {
		return
	}
	var req quantityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		writeError(c, http.StatusBadRequest, "missing quantity")
		return
	}
	h.respond(c)(h.cart.UpdateQuantity(c.Request.Context(), middleware.SessionID(c), id, *req.Quantity))
}

func (h *CartHandler) Remove(c *gin.Context) {
	id, ok := h.productParam(c)
	if !ok {
		return
	}
	h.respond(c)(h.cart.Remove(c.Request.Context(), middleware.SessionID(c), id))
}

// SetCustomOrder handles PUT /api/cart/custom.
func (h *CartHandler) SetCustomOrder(c *gin.Context) {
	var req customOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ShopID != "" {
		if _, ok := h.catalog.Shop(req.ShopID); !ok {
			writeError(c, http.StatusNotFound, "unknown shop")
			return
		}
	}
	h.respond(c)(h.cart.SetCustomOrder(c.Request.Context(), middleware.SessionID(c), req.Text, req.ShopID))
}

func (h *CartHandler) Clear(c *gin.Context) {
	h.respond(c)(h.cart.Clear(c.Request.Context(), middleware.SessionID(c)))
}

func (h *CartHandler) productParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid product id")
		return "", false
	}
	return id, true
}

// respond writes the cart after a mutation. Mutations on an absent line
// leave the cart unchanged and still answer 200.
func (h *CartHandler) respond(c *gin.Context) func(*cart.Cart, error) {
	return func(ct *cart.Cart, err error) {
		if err != nil {
			writeCartError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, ct)
	}
}
