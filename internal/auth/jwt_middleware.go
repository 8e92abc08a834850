package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware
const (
	ContextClaims   = "claims"
	ContextAuthorID = "author_id"
)

func bearer(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// Middleware rejects requests without a valid token carrying one of roles.
func (m *Manager) Middleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := m.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if !hasRole(claims.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}

		// Store identity for handlers to use
		c.Set(ContextClaims, claims)
		if id, err := claims.AuthorID(); err == nil {
			c.Set(ContextAuthorID, id)
		}
		c.Next()
	}
}

// RequireAuthor accepts author tokens only.
func (m *Manager) RequireAuthor() gin.HandlerFunc {
	return m.Middleware(RoleAuthor)
}

// RequireAdmin accepts admin tokens. When enabled is false every request
// passes, which keeps the dashboard usable before an admin password is set.
func (m *Manager) RequireAdmin(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return m.Middleware(RoleAdmin)
}

func hasRole(role string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthorID returns the author id stored by the middleware.
func AuthorID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextAuthorID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
