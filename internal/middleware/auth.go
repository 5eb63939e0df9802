package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/models"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// TokenVerifier is satisfied by service.TokenManager.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// RequireAuth creates a Gin middleware for bearer token authentication.
func RequireAuth(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token requerido"})
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Formato de token inválido, use Bearer <token>"})
			return
		}

		identity, err := verifier.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			logger.Info("Rejected bearer token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token inválido o expirado"})
			return
		}

		c.Set(ContextUserID, identity.ID)
		c.Set(ContextUsername, identity.Username)
		c.Next()
	}
}
