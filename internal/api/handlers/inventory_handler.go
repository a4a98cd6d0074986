package handlers

import (
	"net/http"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/inventory"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	Inventory *inventory.Service
	Market    *marketplace.Service
}

type StockPayload struct {
	Quantity *float64 `json:"quantity" binding:"required"`
}

func (h *InventoryHandler) ListItems(c *gin.Context) {
	items, err := h.Inventory.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, "Failed to query inventory", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// UpsertItem lưu cài đặt của mặt hàng (preset, đơn vị, số lượng).
func (h *InventoryHandler) UpsertItem(c *gin.Context) {
	var item models.InventoryItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item.ItemID = c.Param("itemId")

	saved, err := h.Inventory.Upsert(c.Request.Context(), middleware.UserID(c), item)
	if err != nil {
		respondError(c, "Failed to save inventory item", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// RecordStock cập nhật tồn kho; có thể tự động tạo yêu cầu mua hàng.
func (h *InventoryHandler) RecordStock(c *gin.Context) {
	var req StockPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Market.RecordStock(c.Request.Context(), middleware.UserID(c), c.Param("itemId"), *req.Quantity)
	if err != nil {
		respondError(c, "Failed to record stock", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) GetHistory(c *gin.Context) {
	history, err := h.Inventory.History(c.Request.Context(), middleware.UserID(c), c.Param("itemId"))
	if err != nil {
		respondError(c, "Failed to query inventory history", err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *InventoryHandler) GetTrend(c *gin.Context) {
	trend, err := h.Inventory.Trend(c.Request.Context(), middleware.UserID(c), c.Param("itemId"))
	if err != nil {
		respondError(c, "Failed to compute usage trend", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"itemId": c.Param("itemId"), "windows": trend})
}
