// server/internal/api/routes/routes.go
package routes

import (
	"time"

	"blocknex-supply-api-server/config"
	"blocknex-supply-api-server/internal/advisory"
	"blocknex-supply-api-server/internal/api/handlers"
	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/auth"
	"blocknex-supply-api-server/internal/blockchain"
	"blocknex-supply-api-server/internal/inventory"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
	"blocknex-supply-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps gom tất cả các thành phần mà router cần.
type Deps struct {
	Config    config.Config
	Tokens    *auth.Tokens
	Accounts  *auth.Accounts
	Market    *marketplace.Service
	Inventory *inventory.Service
	Notify    *notify.Service
	Advisor   advisory.Advisor
	// Ledger is nil when the Fabric audit trail is disabled.
	Ledger    blockchain.Ledger
	Hub       *socket.Hub
}

// SetupRouter nhận vào các thành phần phụ thuộc và thiết lập các route
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(d.Config.Server.AllowedOrigins)))

	authn := middleware.Authenticate(d.Tokens)
	limiter := middleware.NewRateLimiter(d.Config.RateLimit)

	// Khởi tạo các handlers
	authHandler := &handlers.AuthHandler{Accounts: d.Accounts}
	profileHandler := &handlers.ProfileHandler{Market: d.Market}
	procurementHandler := &handlers.ProcurementHandler{Market: d.Market}
	offerHandler := &handlers.OfferHandler{Market: d.Market}
	orderHandler := &handlers.OrderHandler{Market: d.Market}
	contractHandler := &handlers.ContractHandler{Market: d.Market}
	inventoryHandler := &handlers.InventoryHandler{Inventory: d.Inventory, Market: d.Market}
	advisoryHandler := &handlers.AdvisoryHandler{Advisor: d.Advisor}
	notificationHandler := &handlers.NotificationHandler{Notify: d.Notify}
	ledgerHandler := &handlers.LedgerHandler{Ledger: d.Ledger}
	adminHandler := &handlers.AdminHandler{Market: d.Market}
	webSocketHandler := &handlers.WebSocketHandler{Hub: d.Hub, Tokens: d.Tokens, Notify: d.Notify}

	buyers := middleware.Authorize(models.RoleDealer, models.RoleTrader)
	sellers := middleware.Authorize(models.RoleSupplier, models.RoleTrader)

	apiV1 := router.Group("/api/v1")
	{
		// Route cho WebSocket (token nằm trong query string)
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		// === CÁC ROUTE KHÔNG YÊU CẦU XÁC THỰC ===
		authGroup := apiV1.Group("/auth")
		authGroup.Use(limiter.Handler())
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// === CÁC ROUTE YÊU CẦU XÁC THỰC (PROTECTED) ===
		protected := apiV1.Group("/")
		protected.Use(authn)
		{
			protected.GET("/auth/me", authHandler.Me)

			profile := protected.Group("/profile")
			{
				profile.GET("", profileHandler.GetMyProfile)
				profile.PUT("", profileHandler.UpdateMyProfile)
				profile.GET("/:uid", profileHandler.GetProfile)
			}

			// Yêu cầu mua hàng của dealer
			procurements := protected.Group("/procurements")
			{
				procurements.POST("", buyers, procurementHandler.CreateRequest)
				procurements.GET("/mine", buyers, procurementHandler.GetMyRequests)
				procurements.GET("/:id", procurementHandler.GetRequest)
				procurements.POST("/:id/offers", sellers, offerHandler.SubmitOffer)
				procurements.POST("/:id/offers/:index/accept", buyers, procurementHandler.AcceptOffer)
				procurements.POST("/:id/offers/:index/reject", buyers, procurementHandler.RejectOffer)
			}

			protected.GET("/marketplace", sellers, procurementHandler.GetFeed)
			protected.GET("/offers/mine", sellers, offerHandler.GetMyOffers)

			orders := protected.Group("/orders")
			{
				orders.GET("/mine", buyers, orderHandler.GetMyOrders)
				orders.GET("/fulfilments", sellers, orderHandler.GetMyFulfilments)
				orders.GET("/:id", orderHandler.GetOrder)
				orders.POST("/:id/status", orderHandler.UpdateStatus)
				orders.POST("/:id/fulfil", buyers, orderHandler.MarkFulfilled)

				// Hợp đồng số: ký và xác minh bị giới hạn tần suất
				contractGroup := orders.Group("/:id/contract")
				{
					contractGroup.GET("", contractHandler.GetState)
					contractGroup.POST("/sign", limiter.Handler(), contractHandler.Sign)
					contractGroup.GET("/verify", limiter.Handler(), contractHandler.Verify)
					contractGroup.GET("/certificate", contractHandler.CertificateText)
					contractGroup.GET("/certificate.pdf", contractHandler.CertificatePDF)
					contractGroup.POST("/archive", contractHandler.Archive)
				}
			}

			protected.POST("/certificates/verify", limiter.Handler(), contractHandler.VerifyCertificate)

			inventoryGroup := protected.Group("/inventory")
			inventoryGroup.Use(buyers)
			{
				inventoryGroup.GET("", inventoryHandler.ListItems)
				inventoryGroup.PUT("/:itemId", inventoryHandler.UpsertItem)
				inventoryGroup.POST("/:itemId/stock", inventoryHandler.RecordStock)
				inventoryGroup.GET("/:itemId/history", inventoryHandler.GetHistory)
				inventoryGroup.GET("/:itemId/trend", inventoryHandler.GetTrend)
			}

			advisoryGroup := protected.Group("/advisory")
			{
				advisoryGroup.GET("", advisoryHandler.Advise)
				advisoryGroup.GET("/suggestions", advisoryHandler.Suggestions)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", notificationHandler.GetMyNotifications)
				notifications.POST("/:id/read", notificationHandler.MarkRead)
			}

			protected.GET("/ledger/receipts/:tx", ledgerHandler.GetReceipt)
		}

		// Nhóm API quản trị, yêu cầu vai trò "admin"
		admin := apiV1.Group("/admin")
		admin.Use(authn, middleware.Authorize(models.RoleAdmin))
		{
			admin.GET("/orders/:id/consistency", adminHandler.CheckConsistency)
			admin.POST("/orders/:id/resync", adminHandler.Resync)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
