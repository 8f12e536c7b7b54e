// README: Assistant handler (token-guarded Gemini custom-order parsing).
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"village/internal/http/middleware"
	"village/internal/modules/assist"
)

const assistTimeout = 10 * time.Second

type AssistHandler struct {
	assist *assist.Service
}

func NewAssistHandler(svc *assist.Service) *AssistHandler {
	return &AssistHandler{assist: svc}
}

type customOrderTextReq struct {
	Text string `json:"text"`
}

// CustomOrder handles POST /api/assist/custom-order.
func (h *AssistHandler) CustomOrder(c *gin.Context) {
	var req customOrderTextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(c, http.StatusBadRequest, "missing text")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), assistTimeout)
	defer cancel()

	uid := middleware.CallerUID(c)
	s, err := h.assist.SuggestCustomOrder(ctx, uid, req.Text)
	if err != nil {
		writeAssistError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}

// Quota handles GET /api/assist/quota.
func (h *AssistHandler) Quota(c *gin.Context) {
	n, err := h.assist.Remaining(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeAssistError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"remaining": n})
}
