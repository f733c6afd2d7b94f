package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, pair, err := h.svc.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			Unauthorized(c, "invalid email or password")
			return
		}
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"user": user, "token": pair})
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新Token
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	pair, err := h.svc.RefreshToken(c.Request.Context(), body.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			Unauthorized(c, "invalid or expired refresh token")
			return
		}
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"token": pair})
}

// Logout 登出
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var body refreshBody
	_ = c.ShouldBindJSON(&body)
	if body.RefreshToken != "" {
		_ = h.svc.Logout(c.Request.Context(), body.RefreshToken)
	}
	Success(c, nil)
}

// Me 当前用户信息
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, user)
}
