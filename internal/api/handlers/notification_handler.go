package handlers

import (
	"net/http"
	"strconv"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Notify *notify.Service
}

// GetMyNotifications: ?unread=true chỉ lấy thông báo chưa đọc.
func (h *NotificationHandler) GetMyNotifications(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	notes, err := h.Notify.List(c.Request.Context(), middleware.UserID(c), unreadOnly)
	if err != nil {
		respondError(c, "Failed to query notifications", err)
		return
	}
	if notes == nil {
		notes = []models.Notification{}
	}
	c.JSON(http.StatusOK, notes)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Notify.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, "Failed to mark notification as read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "id": c.Param("id")})
}
