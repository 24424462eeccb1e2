package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/api/middleware"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Login(ctx context.Context, dto domain.LoginDTO) (*domain.AuthResponseDTO, error)
}

// AdminSession bắt đầu và kết thúc phiên đồng bộ dashboard.
type AdminSession interface {
	StartAdminSession(start time.Time)
	EndAdminSession()
}

type AuthHandler struct {
	authService Authenticator
	session     AdminSession
}

func NewAuthHandler(as Authenticator, session AdminSession) *AuthHandler {
	return &AuthHandler{authService: as, session: session}
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi đăng nhập", "details": err.Error()})
		return
	}
	if authResponse.Role == domain.RoleAdmin && h.session != nil {
		h.session.StartAdminSession(authResponse.SessionStartedAt)
	}
	c.JSON(http.StatusOK, authResponse)
}

// POST /auth/logout
// Chỉ admin mới kết thúc phiên đồng bộ dashboard.
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.session != nil && c.GetString(middleware.UserRoleKey) == domain.RoleAdmin {
		h.session.EndAdminSession()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
