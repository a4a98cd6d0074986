package handlers

import (
	"net/http"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Accounts *auth.Accounts
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register tạo tài khoản mới (dealer, supplier hoặc trader).
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to register account", err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, acc, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "Login failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "account": acc})
}

// Me trả về tài khoản của user đang đăng nhập.
func (h *AuthHandler) Me(c *gin.Context) {
	acc, err := h.Accounts.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, "Account not found", err)
		return
	}
	c.JSON(http.StatusOK, acc)
}
