// README: Session middleware; binds X-Session-ID to the caller's auth-state cell.
package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"village/internal/session"
)

const (
	SessionHeader = "X-Session-ID"
	ctxSession    = "session.id"
)

// AuthStates is the slice of the session store the middleware needs.
type AuthStates interface {
	LoadAuth(ctx context.Context, sessionID string) (session.AuthState, error)
}

// Session must run after Auth. The session must exist, be signed in and
// belong to the token's uid.
func Session(store AuthStates) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}
		st, err := store.LoadAuth(c.Request.Context(), sid)
		switch {
		case errors.Is(err, session.ErrNoSession):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown session"})
			return
		case err != nil:
			log.Printf("session %s: load auth: %v", sid, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !st.SignedIn || st.UserID != CallerUID(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "session belongs to another user"})
			return
		}
		c.Set(ctxSession, sid)
		c.Next()
	}
}

func SessionID(c *gin.Context) string {
	return c.GetString(ctxSession)
}
