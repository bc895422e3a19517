package coupon

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/pkg/clock"
)

const codeLength = 10

// Service manages coupon batches. Batch creation consumes one coupon credit
// per unit through the coordinator in the same transaction that writes the
// units, so a rejected deduction leaves no orphan batch.
type Service struct {
	db          *sqlx.DB
	repo        *Repository
	coordinator credit.Coordinator
	clock       clock.Clock
}

func NewService(db *sqlx.DB, repo *Repository, coordinator credit.Coordinator, clk clock.Clock) *Service {
	return &Service{db: db, repo: repo, coordinator: coordinator, clock: clk}
}

// CreateBatch creates a batch of quantity coupon units for the merchant and
// deducts quantity coupon credits atomically with it.
func (s *Service) CreateBatch(ctx context.Context, merchantID uuid.UUID, quantity int64, startAt, endAt time.Time) (*Batch, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !endAt.After(startAt) || !endAt.After(s.clock.Now()) {
		return nil, ErrInvalidPeriod
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	b := &Batch{
		MerchantID: merchantID,
		Quantity:   quantity,
		StartAt:    startAt,
		EndAt:      endAt,
	}
	if err := s.repo.insertBatch(ctx, tx, b); err != nil {
		return nil, err
	}

	codes := make([]string, quantity)
	for i := range codes {
		codes[i] = generateCode(codeLength)
	}
	if err := s.repo.insertUnits(ctx, tx, b.ID, codes); err != nil {
		return nil, err
	}

	owner := ledger.Owner{Type: ledger.OwnerMerchant, ID: merchantID}
	related := &ledger.Related{EntityType: "coupon_batch", EntityID: b.ID}
	if _, err := s.coordinator.DeductTx(ctx, tx, owner, ledger.CreditCoupon, quantity, related); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("batch_id", b.ID.String()).
		Str("merchant_id", merchantID.String()).
		Int64("quantity", quantity).
		Time("end_at", endAt).
		Msg("coupon batch created")

	return b, nil
}

// Cancel ends the batch early: unissued units are refunded and expired, the
// batch goes to cancelled. Issued units stay issued.
func (s *Service) Cancel(ctx context.Context, batchID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	b, err := s.repo.LockBatch(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if b.Status != BatchActive {
		return ErrBatchNotActive
	}

	unissued, err := s.repo.CountCreatedTx(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if unissued > 0 {
		owner := ledger.Owner{Type: ledger.OwnerMerchant, ID: b.MerchantID}
		related := &ledger.Related{EntityType: "coupon_batch", EntityID: batchID}
		if _, err := s.coordinator.RefundTx(ctx, tx, owner, ledger.CreditCoupon, unissued, related, "cancelled batch refund"); err != nil {
			return err
		}
	}
	if err := s.repo.ExpireUnitsTx(ctx, tx, batchID); err != nil {
		return err
	}
	if err := s.repo.SetBatchStatusTx(ctx, tx, batchID, BatchCancelled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("batch_id", batchID.String()).
		Int64("refunded_units", unissued).
		Msg("coupon batch cancelled")

	return nil
}

// Issue hands one coupon to a recipient by code. Only created units of an
// active, in-window batch are issuable.
func (s *Service) Issue(ctx context.Context, code, issuedTo string) (*Unit, error) {
	u, err := s.repo.GetUnitByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.GetBatch(ctx, u.BatchID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if b.Status != BatchActive || now.Before(b.StartAt) || !now.Before(b.EndAt) {
		return nil, ErrBatchNotActive
	}

	issued, err := s.repo.IssueUnit(ctx, u.ID, issuedTo, now)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("batch_id", b.ID.String()).
		Str("coupon_id", issued.ID.String()).
		Msg("coupon issued")

	return issued, nil
}

// GetBatch returns one batch.
func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return s.repo.GetBatch(ctx, id)
}

// ListBatches returns a merchant's batches.
func (s *Service) ListBatches(ctx context.Context, merchantID uuid.UUID) ([]Batch, error) {
	return s.repo.ListBatchesByMerchant(ctx, merchantID)
}

// ListUnits returns a batch's units.
func (s *Service) ListUnits(ctx context.Context, batchID uuid.UUID) ([]Unit, error) {
	return s.repo.ListUnits(ctx, batchID)
}

func generateCode(length int) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, length)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
