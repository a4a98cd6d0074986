package handlers

import (
	"net/http"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/marketplace"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	Market *marketplace.Service
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	profile, err := h.Market.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, "Failed to load profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	var req marketplace.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.Market.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, "Failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetProfile returns another party's public profile, including its published keys.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.Market.GetProfile(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, "Failed to load profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
