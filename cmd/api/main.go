package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/config"
	"github.com/shoplink/shoplink-api/internal/domain/admin"
	"github.com/shoplink/shoplink-api/internal/domain/adslot"
	"github.com/shoplink/shoplink-api/internal/domain/coupon"
	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/domain/merchant"
	"github.com/shoplink/shoplink-api/internal/domain/message"
	"github.com/shoplink/shoplink-api/internal/domain/reclaimer"
	"github.com/shoplink/shoplink-api/internal/domain/settings"
	"github.com/shoplink/shoplink-api/internal/domain/statement"
	"github.com/shoplink/shoplink-api/internal/middleware"
	"github.com/shoplink/shoplink-api/internal/pkg/clock"
	"github.com/shoplink/shoplink-api/internal/pkg/database"
	"github.com/shoplink/shoplink-api/internal/pkg/logger"
	"github.com/shoplink/shoplink-api/internal/pkg/messaging"
	"github.com/shoplink/shoplink-api/internal/pkg/metrics"
	pkgresponse "github.com/shoplink/shoplink-api/internal/pkg/response"
	"github.com/shoplink/shoplink-api/internal/pkg/storage"
	"github.com/shoplink/shoplink-api/internal/pkg/token"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.Env)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting ShopLink credit API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	metrics.Register()

	tokenService := token.NewService(cfg.JWTSecret, cfg.JWTTTL)
	clk := clock.New()

	// ---------- Repositories ----------
	ledgerRepo := ledger.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	merchantRepo := merchant.NewRepository(db)
	adminRepo := admin.NewRepository(db)
	settingsRepo := settings.NewRepository(db)
	couponRepo := coupon.NewRepository(db)
	grantRepo := adslot.NewRepository(db)

	// ---------- Services ----------
	settingsService := settings.NewService(settingsRepo, redis)
	merchantService := merchant.NewService(merchantRepo, creditRepo)
	adminService := admin.NewService(adminRepo, creditRepo)

	coordinator := credit.NewService(db, creditRepo, ledgerRepo, merchantService, settingsService)

	couponService := coupon.NewService(db, couponRepo, coordinator, clk)
	adslotService := adslot.NewService(db, grantRepo, merchantRepo, coordinator, settingsService, clk)
	statementService := statement.NewService(ledgerRepo, creditRepo, newArchiveStorage(cfg))

	var provider messaging.Provider
	if cfg.MessagingBaseURL != "" {
		provider = messaging.NewClient(messaging.Config{
			BaseURL: cfg.MessagingBaseURL,
			APIKey:  cfg.MessagingAPIKey,
			Sender:  cfg.MessagingSender,
		})
	}
	var messageHandler *message.Handler
	if provider != nil {
		messageHandler = message.NewHandler(message.NewService(provider, coordinator))
	}

	// ---------- Background worker ----------
	worker := reclaimer.NewWorker(db, couponRepo, grantRepo, merchantRepo, coordinator, clk, cfg.ReclaimerInterval)
	worker.Start()
	defer worker.Stop()

	// ---------- Handlers ----------
	creditHandler := credit.NewHandler(coordinator)
	merchantHandler := merchant.NewHandler(merchantService)
	adminHandler := admin.NewHandler(adminService, ledgerRepo)
	settingsHandler := settings.NewHandler(settingsService)
	couponHandler := coupon.NewHandler(couponService)
	adslotHandler := adslot.NewHandler(adslotService)
	statementHandler := statement.NewHandler(statementService)

	authMiddleware := middleware.Auth(tokenService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/merchants", merchantHandler.Routes(authMiddleware))
		r.Mount("/admins", adminHandler.Routes(authMiddleware))
		r.Mount("/settings", settingsHandler.Routes(authMiddleware))
		r.Mount("/coupons", couponHandler.Routes(authMiddleware))
		r.Mount("/ad-slots", adslotHandler.Routes(authMiddleware))
		r.Mount("/statements", statementHandler.Routes(authMiddleware))
		if messageHandler != nil {
			r.Mount("/messages", messageHandler.Routes(authMiddleware))
		}
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func newArchiveStorage(cfg *config.Config) storage.Storage {
	switch cfg.ArchiveProvider {
	case "s3":
		s, err := storage.NewS3Storage(storage.S3Config{
			Region:          cfg.ArchiveRegion,
			AccessKeyID:     cfg.ArchiveAccessKeyID,
			AccessKeySecret: cfg.ArchiveAccessKeySecret,
			BucketName:      cfg.ArchiveBucket,
			PublicURL:       cfg.ArchivePublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 archive storage")
		}
		return s
	case "r2":
		s, err := storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.ArchiveAccountID,
			AccessKeyID:     cfg.ArchiveAccessKeyID,
			AccessKeySecret: cfg.ArchiveAccessKeySecret,
			BucketName:      cfg.ArchiveBucket,
			PublicURL:       cfg.ArchivePublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 archive storage")
		}
		return s
	case "local":
		s, err := storage.NewLocalStorage(cfg.ArchiveLocalPath, cfg.ArchivePublicURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create local archive storage")
		}
		return s
	default:
		return nil
	}
}
