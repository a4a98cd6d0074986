package handlers

import (
	"net/http"
	"strconv"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type ProcurementHandler struct {
	Market *marketplace.Service
}

// CreateRequest mở một yêu cầu mua hàng cho dealer đang đăng nhập.
func (h *ProcurementHandler) CreateRequest(c *gin.Context) {
	var req marketplace.CreateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.DealerID = middleware.UserID(c)

	created, err := h.Market.CreateRequest(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to create procurement request", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetMyRequests lists the dealer's requests. ?advisory=true adds demand tags.
func (h *ProcurementHandler) GetMyRequests(c *gin.Context) {
	withAdvisory, _ := strconv.ParseBool(c.Query("advisory"))
	views, err := h.Market.ListDealerRequests(c.Request.Context(), middleware.UserID(c), withAdvisory)
	if err != nil {
		respondError(c, "Failed to query procurement requests", err)
		return
	}
	if views == nil {
		views = []marketplace.RequestView{}
	}
	c.JSON(http.StatusOK, views)
}

// GetRequest: chủ yêu cầu, supplier đã chào giá hoặc bất kỳ ai khi yêu cầu còn mở.
func (h *ProcurementHandler) GetRequest(c *gin.Context) {
	var (
		req models.ProcurementRequest
		err error
	)
	if middleware.Role(c) == models.RoleAdmin {
		req, err = h.Market.GetRequest(c.Request.Context(), c.Param("id"))
	} else {
		req, err = h.Market.RequestForParty(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	}
	if err != nil {
		respondError(c, "Procurement request not found", err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GetFeed lấy các yêu cầu đang mở của những dealer khác.
func (h *ProcurementHandler) GetFeed(c *gin.Context) {
	reqs, err := h.Market.ListOpenRequests(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, "Failed to query marketplace", err)
		return
	}
	if reqs == nil {
		reqs = []models.ProcurementRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

func offerIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Offer index must be a non-negative integer"})
		return 0, false
	}
	return idx, true
}

// AcceptOffer chấp nhận một báo giá và tạo đơn hàng.
func (h *ProcurementHandler) AcceptOffer(c *gin.Context) {
	idx, ok := offerIndex(c)
	if !ok {
		return
	}
	order, err := h.Market.AcceptOffer(c.Request.Context(), middleware.UserID(c), c.Param("id"), idx)
	if err != nil {
		respondError(c, "Failed to accept offer", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *ProcurementHandler) RejectOffer(c *gin.Context) {
	idx, ok := offerIndex(c)
	if !ok {
		return
	}
	offer, err := h.Market.RejectOffer(c.Request.Context(), middleware.UserID(c), c.Param("id"), idx)
	if err != nil {
		respondError(c, "Failed to reject offer", err)
		return
	}
	c.JSON(http.StatusOK, offer)
}
