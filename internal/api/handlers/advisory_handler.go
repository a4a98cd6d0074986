package handlers

import (
	"net/http"

	"blocknex-supply-api-server/internal/advisory"

	"github.com/gin-gonic/gin"
)

// AdvisoryHandler never fails because of the advisory service; a missing
// verdict is reported as available=false.
type AdvisoryHandler struct {
	Advisor advisory.Advisor
}

func (h *AdvisoryHandler) Advise(c *gin.Context) {
	item := c.Query("item")
	if item == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'item' is required"})
		return
	}
	kind := advisory.Kind(c.DefaultQuery("type", string(advisory.Seasonal)))
	if kind != advisory.Seasonal && kind != advisory.Market {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'type' must be seasonal or market"})
		return
	}

	resp := gin.H{"item": item, "type": kind, "available": false}
	if h.Advisor != nil {
		if v, ok := h.Advisor.Advise(c.Request.Context(), item, kind); ok {
			resp["available"] = true
			resp["verdict"] = v
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdvisoryHandler) Suggestions(c *gin.Context) {
	items := []advisory.Suggestion{}
	if h.Advisor != nil {
		if s := h.Advisor.Suggestions(c.Request.Context()); s != nil {
			items = s
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
