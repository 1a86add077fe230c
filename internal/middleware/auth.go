package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medcore/records-api/internal/model"
)

const contextPhysician = "physician"

// Resolver turns a bearer token into the physician it belongs to.
type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*model.Physician, error)
}

type AuthMiddleware struct {
	resolver Resolver
}

func NewAuthMiddleware(resolver Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Authenticate verifies the access token and sets the physician in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		physician, err := m.resolver.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(contextPhysician, physician)
		c.Next()
	}
}

// PhysicianFromContext returns the authenticated physician, or nil when
// the request did not pass through Authenticate.
func PhysicianFromContext(c *gin.Context) *model.Physician {
	v, ok := c.Get(contextPhysician)
	if !ok {
		return nil
	}
	physician, ok := v.(*model.Physician)
	if !ok {
		return nil
	}
	return physician
}
