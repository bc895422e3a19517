package adslot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/domain/merchant"
	"github.com/shoplink/shoplink-api/internal/pkg/clock"
	"github.com/shoplink/shoplink-api/internal/pkg/metrics"
)

// grantCost is the paid_ad credits consumed per grant, at grant time.
const grantCost = 1

// CeilingSource supplies the per-admin concurrent grant limit. Implemented
// by the settings domain.
type CeilingSource interface {
	AdGrantCeiling(ctx context.Context) (int, error)
}

// Service allocates exclusive placement slots. Acquisition shares one
// transaction with the credit deduction so a failed deduct never leaves a
// dangling grant, and vice versa.
type Service struct {
	db          *sqlx.DB
	repo        *Repository
	merchants   *merchant.Repository
	coordinator credit.Coordinator
	ceilings    CeilingSource
	clock       clock.Clock
}

func NewService(db *sqlx.DB, repo *Repository, merchants *merchant.Repository, coordinator credit.Coordinator, ceilings CeilingSource, clk clock.Clock) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		merchants:   merchants,
		coordinator: coordinator,
		ceilings:    ceilings,
		clock:       clk,
	}
}

// ListOccupied returns the slots currently held, globally or scoped to one
// admin's grants.
func (s *Service) ListOccupied(ctx context.Context, scopeAdminID *uuid.UUID) ([]Slot, error) {
	return s.repo.OccupiedSlots(ctx, scopeAdminID, s.clock.Now())
}

// ListAvailable returns the slots not currently held within the scope.
func (s *Service) ListAvailable(ctx context.Context, scopeAdminID *uuid.UUID) ([]Slot, error) {
	occupied, err := s.repo.OccupiedSlots(ctx, scopeAdminID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	taken := make(map[Slot]bool, len(occupied))
	for _, slot := range occupied {
		taken[slot] = true
	}

	available := make([]Slot, 0, len(AllSlots))
	for _, slot := range AllSlots {
		if !taken[slot] {
			available = append(available, slot)
		}
	}
	return available, nil
}

// TryAcquire grants the slot to the merchant for [startAt, endAt], deducting
// one paid_ad credit in the same transaction. Fails with ErrSlotConflict when
// the slot is occupied or the introducing admin already holds the ceiling of
// concurrently active grants; nothing is mutated on failure.
func (s *Service) TryAcquire(ctx context.Context, slot Slot, merchantID uuid.UUID, startAt, endAt time.Time) (*Grant, error) {
	if !slot.Valid() {
		return nil, ErrInvalidSlot
	}
	now := s.clock.Now()
	if !endAt.After(startAt) || !endAt.After(now) {
		return nil, ErrInvalidPeriod
	}

	m, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	ceiling, err := s.ceilings.AdGrantCeiling(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if m.AdminID.Valid {
		if err := s.repo.lockAdmin(ctx, tx, m.AdminID.UUID); err != nil {
			return nil, err
		}
		active, err := s.repo.countActiveByAdmin(ctx, tx, m.AdminID.UUID, now)
		if err != nil {
			return nil, err
		}
		if active >= ceiling {
			metrics.SlotConflictsTotal.Inc()
			return nil, ErrSlotConflict
		}
	}

	if err := s.settleLapsed(ctx, tx, slot, now); err != nil {
		return nil, err
	}

	g := &Grant{
		MerchantID: merchantID,
		AdminID:    m.AdminID,
		Slot:       slot,
		StartAt:    startAt,
		EndAt:      endAt,
	}
	if err := s.repo.insertGrant(ctx, tx, g); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			metrics.SlotConflictsTotal.Inc()
		}
		return nil, err
	}

	owner := ledger.Owner{Type: ledger.OwnerMerchant, ID: merchantID}
	related := &ledger.Related{EntityType: "paid_ad_grant", EntityID: g.ID}
	if _, err := s.coordinator.DeductTx(ctx, tx, owner, ledger.CreditPaidAd, grantCost, related); err != nil {
		return nil, err
	}

	if err := s.merchants.SetPaidAdsTx(ctx, tx, merchantID, true); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("grant_id", g.ID.String()).
		Str("merchant_id", merchantID.String()).
		Str("slot", string(slot)).
		Time("end_at", endAt).
		Msg("ad slot granted")

	return g, nil
}

// settleLapsed expires a grant whose end time has passed but which the
// reclaimer has not swept yet, so its slot does not stay blocked between
// sweeps. The merchant's paid_ads flag flips off unless another active grant
// remains. Runs on the acquisition transaction.
func (s *Service) settleLapsed(ctx context.Context, tx *sqlx.Tx, slot Slot, now time.Time) error {
	lapsed, err := s.repo.lapsedOnSlot(ctx, tx, slot, now)
	if err != nil {
		return err
	}
	if lapsed == nil {
		return nil
	}

	expired, err := s.repo.ExpireTx(ctx, tx, lapsed.ID)
	if err != nil {
		return err
	}
	if !expired {
		return nil
	}

	stillActive, err := s.repo.HasOtherActiveForMerchant(ctx, tx, lapsed.MerchantID, lapsed.ID, now)
	if err != nil {
		return err
	}
	if !stillActive {
		if err := s.merchants.SetPaidAdsTx(ctx, tx, lapsed.MerchantID, false); err != nil {
			return err
		}
	}

	log.Info().
		Str("grant_id", lapsed.ID.String()).
		Str("slot", string(slot)).
		Msg("lapsed ad grant settled during acquisition")
	return nil
}

// Get returns one grant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Grant, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByMerchant returns a merchant's grants.
func (s *Service) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Grant, error) {
	return s.repo.ListByMerchant(ctx, merchantID)
}
