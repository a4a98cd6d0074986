// server/cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blocknex-supply-api-server/config"
	"blocknex-supply-api-server/internal/advisory"
	"blocknex-supply-api-server/internal/api/routes"
	"blocknex-supply-api-server/internal/auth"
	"blocknex-supply-api-server/internal/blockchain"
	"blocknex-supply-api-server/internal/database"
	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/inventory"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
	"blocknex-supply-api-server/internal/s3"
	"blocknex-supply-api-server/internal/signing"
	"blocknex-supply-api-server/internal/socket"
	"blocknex-supply-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	// 1. Load configuration (.env là tùy chọn)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment")
	}
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}
	setupLogging(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. MongoDB là nơi lưu trữ duy nhất
	client, db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	docs := store.NewMongoStore(db)
	if err := docs.EnsureIndexes(ctx, models.AllGroups...); err != nil {
		log.Fatal().Err(err).Msg("Failed to create indexes")
	}

	// 3. Xác thực và tài khoản admin
	tokens, err := auth.NewTokens(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid JWT configuration")
	}
	accounts := auth.NewAccounts(docs, tokens)
	if err := database.SeedAdmin(ctx, accounts, cfg.Seed); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin account")
	}

	// 4. Các dịch vụ tùy chọn: mỗi dịch vụ chỉ bật khi được cấu hình
	hub := socket.NewHub()
	notes := notify.NewService(docs, hub)
	inv := inventory.NewService(docs)
	opts := []marketplace.Option{marketplace.WithNotifier(notes), marketplace.WithInventory(inv)}

	var ledger blockchain.Ledger
	if cfg.Fabric.Enabled {
		fabricSetup, err := blockchain.Initialize(cfg.Fabric)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Fabric setup")
		}
		defer fabricSetup.Close()
		ledger = blockchain.NewFabricLedger(fabricSetup.Contract)
		opts = append(opts, marketplace.WithLedger(ledger, cfg.Ledger.ConfirmTimeout, cfg.Ledger.PollInterval))
	}

	var cache advisory.Cache
	if cfg.Redis.Addr != "" {
		rc, err := advisory.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, advisory responses will not be cached")
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	advisor := advisory.NewClient(cfg.Advisory, cache, cfg.Redis.TTL)
	opts = append(opts, marketplace.WithAdvisor(advisor))

	if cfg.RabbitMQ.URL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize RabbitMQ publisher")
		}
		defer publisher.Close()
		opts = append(opts, marketplace.WithEvents(publisher))
	}

	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 uploader")
		}
		opts = append(opts, marketplace.WithArchiver(uploader))
	}

	signer := signing.NewService(docs, signing.WithKeyBits(cfg.Signing.KeyBits))
	market := marketplace.NewService(docs, signer, opts...)

	// 5. Truyền tất cả các thành phần cần thiết vào router
	router := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		Tokens:    tokens,
		Accounts:  accounts,
		Market:    market,
		Inventory: inv,
		Notify:    notes,
		Advisor:   advisor,
		Ledger:    ledger,
		Hub:       hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Start server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to run server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shut down")
	}
	// Chờ các giao dịch audit đang chạy nền
	market.Wait()
	log.Info().Msg("Server stopped")
}
