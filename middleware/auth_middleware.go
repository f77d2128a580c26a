package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"spaceclouds/analytics/utils"

	"github.com/gin-gonic/gin"
)

// AuthCookie is the cookie carrying the dashboard token.
const AuthCookie = "jwt_token"

// AuthRequired admits requests that carry apiKey in X-API-KEY or a valid
// dashboard JWT in the jwt_token cookie or the Authorization header.
// An empty apiKey disables key access.
func AuthRequired(apiKey string, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); apiKey != "" && key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				c.Next()
				return
			}
		}

		tokenString, err := c.Cookie(AuthCookie)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}

		claims, err := utils.ValidateJWT(jwtSecret, tokenString)
		if err != nil {
			slog.Warn("AuthRequired: invalid dashboard token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
