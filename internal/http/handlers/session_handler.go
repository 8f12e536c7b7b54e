// README: Session handlers; bind a verified Firebase identity to a new session id.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"village/internal/http/middleware"
	"village/internal/session"
)

type SessionHandler struct {
	store *session.Store
	now   func() time.Time
}

func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store, now: time.Now}
}

// Create handles POST /api/session.
func (h *SessionHandler) Create(c *gin.Context) {
	id := middleware.CallerIdentity(c)
	sid := session.NewID()
	st := session.AuthState{
		UserID:      id.UserID,
		UserName:    id.Name,
		UserPhone:   id.Phone,
		UserVillage: id.Village,
		Role:        middleware.CallerRole(c),
		SignedIn:    true,
		SignedInAt:  h.now().UTC(),
	}
	if err := h.store.SaveAuth(c.Request.Context(), sid, st); err != nil {
		writeInternal(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"sessionId": sid, "auth": st})
}

// Delete handles DELETE /api/session; the session's cart goes with it.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), middleware.SessionID(c)); err != nil {
		writeInternal(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
