package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/pkg/jwt"
)

// JWTAuth JWT authentication middleware
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.Error(c, 401, "Missing authorization header", nil)
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.Error(c, 401, "Invalid authorization header format", nil)
			c.Abort()
			return
		}

		claims, err := jwtManager.Verify(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.Error(c, 401, "Token expired", err)
			} else {
				common.Error(c, 401, "Invalid token", err)
			}
			c.Abort()
			return
		}

		c.Set("actorID", claims.UserID)
		c.Set("actorRoles", claims.Roles)

		c.Next()
	}
}

// GetActorID extracts the authenticated actor's id from context
func GetActorID(c *gin.Context) string {
	actorID, exists := c.Get("actorID")
	if !exists {
		return ""
	}
	if str, ok := actorID.(string); ok {
		return str
	}
	return ""
}

// GetActorRoles extracts the authenticated actor's roles from context
func GetActorRoles(c *gin.Context) []string {
	roles, exists := c.Get("actorRoles")
	if !exists {
		return nil
	}
	if list, ok := roles.([]string); ok {
		return list
	}
	return nil
}
