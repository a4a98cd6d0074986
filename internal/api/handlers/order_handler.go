package handlers

import (
	"net/http"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	Market *marketplace.Service
}

func respondOrders(c *gin.Context, orders []models.Order, err error) {
	if err != nil {
		respondError(c, "Failed to query orders", err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GetMyOrders: đơn hàng của dealer.
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	orders, err := h.Market.ListDealerOrders(c.Request.Context(), middleware.UserID(c))
	respondOrders(c, orders, err)
}

// GetMyFulfilments: đơn hàng supplier cần giao.
func (h *OrderHandler) GetMyFulfilments(c *gin.Context) {
	orders, err := h.Market.ListSupplierFulfilments(c.Request.Context(), middleware.UserID(c))
	respondOrders(c, orders, err)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.Market.OrderForParty(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to load order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatus ghi một bước theo dõi mới cho đơn hàng.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req marketplace.AdvanceStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.OrderID = c.Param("id")
	req.ActorID = middleware.UserID(c)

	order, err := h.Market.AdvanceStatus(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to update order status", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// MarkFulfilled closes a delivered order. The body is optional.
func (h *OrderHandler) MarkFulfilled(c *gin.Context) {
	var req marketplace.FulfillInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	req.OrderID = c.Param("id")
	req.DealerID = middleware.UserID(c)

	order, err := h.Market.MarkFulfilled(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to mark order as fulfilled", err)
		return
	}
	c.JSON(http.StatusOK, order)
}
