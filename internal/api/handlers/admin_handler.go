package handlers

import (
	"net/http"

	"blocknex-supply-api-server/internal/marketplace"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	Market *marketplace.Service
}

// CheckConsistency so sánh bản global của đơn hàng với các bản sao riêng.
func (h *AdminHandler) CheckConsistency(c *gin.Context) {
	report, err := h.Market.CheckOrderConsistency(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to check order consistency", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Resync ghi đè các bản sao riêng bằng bản global.
func (h *AdminHandler) Resync(c *gin.Context) {
	report, err := h.Market.ResyncOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to resync order", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
