// README: Firebase ID token auth middleware; exposes caller uid, role and identity to handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"village/internal/infra"
	"village/internal/modules/user"
)

const (
	ctxUID      = "auth.uid"
	ctxRole     = "auth.role"
	ctxIdentity = "auth.identity"
)

const (
	RoleAdmin = "admin"
	RoleTeam  = "team"
)

// Auth rejects requests without a valid "Bearer <firebase id token>" header.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, token.ClaimString("role"))
		c.Set(ctxIdentity, user.Identity{
			UserID:  token.UID,
			Name:    token.ClaimString("name"),
			Phone:   token.PhoneNumber(),
			Village: token.ClaimString("village"),
		})
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

func CallerIdentity(c *gin.Context) user.Identity {
	v, _ := c.Get(ctxIdentity)
	id, _ := v.(user.Identity)
	return id
}
