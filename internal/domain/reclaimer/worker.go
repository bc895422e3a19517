package reclaimer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/adslot"
	"github.com/shoplink/shoplink-api/internal/domain/coupon"
	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/domain/merchant"
	"github.com/shoplink/shoplink-api/internal/pkg/clock"
	"github.com/shoplink/shoplink-api/internal/pkg/metrics"
)

// Worker reclaims value from time-boxed grants that have run out: unissued
// coupon units flow back to the merchant's balance, finished ad grants go
// to expired. Each item is processed in its own transaction so one bad row
// never blocks the rest of the sweep.
type Worker struct {
	db          *sqlx.DB
	coupons     *coupon.Repository
	grants      *adslot.Repository
	merchants   *merchant.Repository
	coordinator credit.Coordinator
	clock       clock.Clock
	interval    time.Duration
	stopCh      chan struct{}
	runMu       sync.Mutex
}

func NewWorker(db *sqlx.DB, coupons *coupon.Repository, grants *adslot.Repository, merchants *merchant.Repository, coordinator credit.Coordinator, clk clock.Clock, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &Worker{
		db:          db,
		coupons:     coupons,
		grants:      grants,
		merchants:   merchants,
		coordinator: coordinator,
		clock:       clk,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background worker.
func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting expiry reclaimer...")
	go w.loop()
}

// Stop gracefully stops the background worker.
func (w *Worker) Stop() {
	log.Info().Msg("Stopping expiry reclaimer...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.Run(context.Background())

	for {
		select {
		case <-ticker.C:
			w.Run(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

// Run performs one reclamation sweep. Overlapping calls are dropped rather
// than queued: a slow sweep must never be shadowed by a second one.
func (w *Worker) Run(ctx context.Context) {
	if !w.runMu.TryLock() {
		log.Warn().Msg("Reclaimer sweep still running, skipping tick")
		metrics.ReclaimerRunsTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer w.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	now := w.clock.Now()
	failed := false

	if err := w.reclaimCouponBatches(ctx, now); err != nil {
		log.Error().Err(err).Msg("Coupon batch reclamation scan failed")
		failed = true
	}
	if err := w.expireAdGrants(ctx, now); err != nil {
		log.Error().Err(err).Msg("Ad grant expiry scan failed")
		failed = true
	}

	if failed {
		metrics.ReclaimerRunsTotal.WithLabelValues("error").Inc()
	} else {
		metrics.ReclaimerRunsTotal.WithLabelValues("ok").Inc()
	}
}

func (w *Worker) reclaimCouponBatches(ctx context.Context, now time.Time) error {
	batches, err := w.coupons.ListExpirable(ctx, now)
	if err != nil {
		return err
	}

	for _, b := range batches {
		if err := w.reclaimBatch(ctx, b.ID); err != nil {
			log.Error().Err(err).Str("batch_id", b.ID.String()).Msg("Failed to reclaim coupon batch")
		}
	}
	return nil
}

func (w *Worker) reclaimBatch(ctx context.Context, batchID uuid.UUID) error {
	tx, err := w.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Re-check under lock: a concurrent cancel or an earlier sweep may have
	// already settled this batch.
	b, err := w.coupons.LockBatch(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if b.Status != coupon.BatchActive {
		return nil
	}

	unissued, err := w.coupons.CountCreatedTx(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if unissued > 0 {
		owner := ledger.Owner{Type: ledger.OwnerMerchant, ID: b.MerchantID}
		related := &ledger.Related{EntityType: "coupon_batch", EntityID: batchID}
		if _, err := w.coordinator.RefundTx(ctx, tx, owner, ledger.CreditCoupon, unissued, related, "expired batch refund"); err != nil {
			return err
		}
	}
	if err := w.coupons.ExpireUnitsTx(ctx, tx, batchID); err != nil {
		return err
	}
	if err := w.coupons.SetBatchStatusTx(ctx, tx, batchID, coupon.BatchExpired); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	metrics.ReclaimedCouponUnitsTotal.Add(float64(unissued))
	log.Info().
		Str("batch_id", batchID.String()).
		Int64("reclaimed_units", unissued).
		Msg("Expired coupon batch reclaimed")
	return nil
}

func (w *Worker) expireAdGrants(ctx context.Context, now time.Time) error {
	grants, err := w.grants.ListExpirable(ctx, now)
	if err != nil {
		return err
	}

	for _, g := range grants {
		if err := w.expireGrant(ctx, g, now); err != nil {
			log.Error().Err(err).Str("grant_id", g.ID.String()).Msg("Failed to expire ad grant")
		}
	}
	return nil
}

func (w *Worker) expireGrant(ctx context.Context, g adslot.Grant, now time.Time) error {
	tx, err := w.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	expired, err := w.grants.ExpireTx(ctx, tx, g.ID)
	if err != nil {
		return err
	}
	if !expired {
		// Already settled by a previous sweep.
		return nil
	}

	stillAdvertising, err := w.grants.HasOtherActiveForMerchant(ctx, tx, g.MerchantID, g.ID, now)
	if err != nil {
		return err
	}
	if !stillAdvertising {
		if err := w.merchants.SetPaidAdsTx(ctx, tx, g.MerchantID, false); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	metrics.ExpiredAdGrantsTotal.Inc()
	log.Info().
		Str("grant_id", g.ID.String()).
		Str("merchant_id", g.MerchantID.String()).
		Str("slot", string(g.Slot)).
		Msg("Ad grant expired")
	return nil
}
