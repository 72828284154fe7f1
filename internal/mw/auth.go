package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aerium-backend/internal/auth"
	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

// RequireAuth validates the Bearer access token and loads the authenticated
// user into the request context. Requests without a valid token are rejected
// with 401.
func RequireAuth(tokens *auth.Manager, st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "), auth.TokenKindAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		user, err := st.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// RequireAdmin rejects requests from non-admin users with 403. It must run
// after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the request context, or nil
// when the request is unauthenticated.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
