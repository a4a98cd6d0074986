package handlers

import (
	"net/http"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	Market *marketplace.Service
}

// SubmitOffer gửi báo giá của supplier cho một yêu cầu đang mở.
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	var req marketplace.SubmitOfferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.RequestID = c.Param("id")
	req.SupplierID = middleware.UserID(c)

	offer, err := h.Market.SubmitOffer(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to submit offer", err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

func (h *OfferHandler) GetMyOffers(c *gin.Context) {
	offers, err := h.Market.ListSupplierOffers(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, "Failed to query offers", err)
		return
	}
	if offers == nil {
		offers = []models.Offer{}
	}
	c.JSON(http.StatusOK, offers)
}
