// Command reclaimer runs the expiry reclamation worker on its own, for
// deployments that keep the sweep out of the API process.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/config"
	"github.com/shoplink/shoplink-api/internal/domain/adslot"
	"github.com/shoplink/shoplink-api/internal/domain/coupon"
	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/domain/merchant"
	"github.com/shoplink/shoplink-api/internal/domain/reclaimer"
	"github.com/shoplink/shoplink-api/internal/domain/settings"
	"github.com/shoplink/shoplink-api/internal/pkg/clock"
	"github.com/shoplink/shoplink-api/internal/pkg/database"
	"github.com/shoplink/shoplink-api/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.Env)

	log.Info().Dur("interval", cfg.ReclaimerInterval).Msg("Starting standalone reclaimer")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	ledgerRepo := ledger.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	merchantRepo := merchant.NewRepository(db)
	settingsRepo := settings.NewRepository(db)
	couponRepo := coupon.NewRepository(db)
	grantRepo := adslot.NewRepository(db)

	settingsService := settings.NewService(settingsRepo, nil)
	merchantService := merchant.NewService(merchantRepo, creditRepo)
	coordinator := credit.NewService(db, creditRepo, ledgerRepo, merchantService, settingsService)

	worker := reclaimer.NewWorker(db, couponRepo, grantRepo, merchantRepo, coordinator, clock.New(), cfg.ReclaimerInterval)
	worker.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	worker.Stop()
	log.Info().Msg("Reclaimer exited properly")
}
