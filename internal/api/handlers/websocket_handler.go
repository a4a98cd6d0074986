// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"blocknex-supply-api-server/internal/auth"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
	"blocknex-supply-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Thời gian chờ tối đa cho một tin nhắn từ client.
const pongWait = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub    *socket.Hub
	Tokens *auth.Tokens
	// Notify feeds new notifications of the connected user; may be nil.
	Notify *notify.Service
}

// ServeWs xử lý các yêu cầu kết nối WebSocket.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	claims, err := h.Tokens.ParseJWT(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := h.Hub.Register(userID, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.Hub.Unregister(client)
		conn.Close()
	}()

	if h.Notify != nil {
		go func() {
			err := h.Notify.Stream(ctx, userID, func(n models.Notification) error {
				return client.WriteJSON(gin.H{"event": "notification", "payload": n})
			})
			if err != nil && ctx.Err() == nil {
				log.Debug().Err(err).Str("user", userID).Msg("notification stream stopped")
			}
		}()
	}

	// Thiết lập cơ chế Heartbeat: mỗi PING từ client gia hạn deadline đọc.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	// Vòng lặp đọc; client không gửi dữ liệu nghiệp vụ qua kênh này.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("user", userID).Msg("Unexpected close error")
			}
			break
		}
	}
}
