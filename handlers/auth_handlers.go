// analytics/handlers/auth_handlers.go
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"spaceclouds/analytics/middleware"
	"spaceclouds/analytics/utils"
)

const dashboardSubject = "dashboard"

type AuthHandlers struct {
	PasswordHash []byte
	JWTSecret    []byte
	TokenTTL     time.Duration
}

func NewAuthHandlers(passwordHash string, jwtSecret []byte, ttl time.Duration) *AuthHandlers {
	return &AuthHandlers{PasswordHash: []byte(passwordHash), JWTSecret: jwtSecret, TokenTTL: ttl}
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login checks the dashboard password and issues a token cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(h.PasswordHash) == 0 || len(h.JWTSecret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dashboard login is not configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.PasswordHash, []byte(req.Password)); err != nil {
		slog.Warn("Dashboard login failed", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := utils.GenerateJWT(h.JWTSecret, dashboardSubject, h.TokenTTL)
	if err != nil {
		slog.Error("Failed to generate dashboard token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(middleware.AuthCookie, tokenString, int(h.TokenTTL/time.Second), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": tokenString})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// HashPassword returns the bcrypt hash to put in DASHBOARD_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
