package credit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/pkg/metrics"
)

// service implements Coordinator. All balance writes in the system funnel
// through here.
type service struct {
	db        *sqlx.DB
	repo      *Repository
	entries   *ledger.Repository
	merchants MerchantDirectory
	rates     RateSource
}

func NewService(db *sqlx.DB, repo *Repository, entries *ledger.Repository, merchants MerchantDirectory, rates RateSource) Coordinator {
	return &service{
		db:        db,
		repo:      repo,
		entries:   entries,
		merchants: merchants,
		rates:     rates,
	}
}

func (s *service) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	return tx, nil
}

// applyTx performs the locked check-then-apply for one signed amount and
// appends the matching ledger entry, all on the caller's transaction.
// allowNegative is only ever true for platform adjustments (float).
func (s *service) applyTx(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, amount int64, action ledger.Action, related *ledger.Related, description string, meta ledger.Metadata) (*ledger.Entry, error) {
	if err := s.repo.assertActive(ctx, tx, owner); err != nil {
		return nil, err
	}

	balance, err := s.repo.lockCredit(ctx, tx, owner, creditType)
	if err != nil {
		return nil, err
	}

	after := balance + amount
	if after < 0 {
		if action == ledger.ActionAdjustment && owner.Type == ledger.OwnerPlatform {
			// platform credits may go negative to represent float
		} else {
			metrics.InsufficientCreditsTotal.Inc()
			return nil, ErrInsufficientCredits
		}
	}

	if err := s.repo.setCredit(ctx, tx, owner, creditType, after); err != nil {
		return nil, err
	}

	entry := &ledger.Entry{
		OwnerType:     owner.Type,
		OwnerID:       owner.ID,
		CreditType:    creditType,
		Action:        action,
		Amount:        amount,
		BalanceBefore: balance,
		BalanceAfter:  after,
		Description:   description,
		Metadata:      meta,
	}
	if related != nil {
		entry.RelatedEntityType = &related.EntityType
		id := related.EntityID
		entry.RelatedEntityID = &id
	}

	if err := s.entries.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}

	metrics.LedgerOperationsTotal.WithLabelValues(string(action), string(owner.Type)).Inc()
	return entry, nil
}

func (s *service) Purchase(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units, unitPrice int64) (*ledger.Entry, commission.Split, error) {
	var split commission.Split

	if units <= 0 || unitPrice < 0 {
		return nil, split, ErrInvalidUnits
	}
	if !owner.Type.Valid() || !creditType.Valid() {
		return nil, split, ErrUnknownOwner
	}

	gross := units * unitPrice

	// Merchant purchases split the gross between the introducing admin and
	// the platform; everything else goes fully to the platform.
	hasAdmin := false
	var info MerchantInfo
	if owner.Type == ledger.OwnerMerchant {
		var err error
		info, err = s.merchants.Lookup(ctx, owner.ID)
		if err != nil {
			return nil, split, err
		}
		hasAdmin = info.IntroducingAdmin != nil

		splitter, err := s.rates.Splitter(ctx)
		if err != nil {
			return nil, split, err
		}
		split = splitter.Split(gross, info.Tier, hasAdmin)
	} else {
		split = commission.Split{PlatformShare: gross}
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, split, err
	}
	defer tx.Rollback()

	entry, err := s.applyTx(ctx, tx, owner, creditType, units, ledger.ActionPurchase, nil,
		fmt.Sprintf("purchase of %d %s credits", units, creditType),
		ledger.Metadata{
			"units":      fmt.Sprintf("%d", units),
			"unit_price": fmt.Sprintf("%d", unitPrice),
			"gross":      fmt.Sprintf("%d", gross),
		})
	if err != nil {
		return nil, split, err
	}

	if owner.Type == ledger.OwnerMerchant && gross > 0 {
		if hasAdmin && split.AdminShare > 0 {
			adminOwner := ledger.Owner{Type: ledger.OwnerAdmin, ID: *info.IntroducingAdmin}
			if err := s.payCommission(ctx, tx, adminOwner, split.AdminShare, entry); err != nil {
				return nil, split, err
			}
		}
		if split.PlatformShare > 0 {
			if err := s.payCommission(ctx, tx, ledger.PlatformOwner, split.PlatformShare, entry); err != nil {
				return nil, split, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, split, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("owner", owner.String()).
		Str("credit_type", string(creditType)).
		Int64("units", units).
		Int64("gross", gross).
		Int64("admin_share", split.AdminShare).
		Int64("platform_share", split.PlatformShare).
		Msg("credit purchase applied")

	return entry, split, nil
}

// payCommission credits one commission share to a monetary wallet and records
// the completed wallet transaction, on the purchase transaction.
func (s *service) payCommission(ctx context.Context, tx *sqlx.Tx, beneficiary ledger.Owner, share int64, purchase *ledger.Entry) error {
	before, after, err := s.repo.creditMonetary(ctx, tx, beneficiary, share, true)
	if err != nil {
		return err
	}

	entityType := "ledger_entry"
	entryID := purchase.ID
	return s.repo.insertWalletTransaction(ctx, tx, &WalletTransaction{
		OwnerType:         beneficiary.Type,
		OwnerID:           beneficiary.ID,
		Type:              WalletTxCommission,
		Amount:            share,
		Status:            WalletTxCompleted,
		BalanceBefore:     before,
		BalanceAfter:      after,
		RelatedEntityType: &entityType,
		RelatedEntityID:   &entryID,
		Metadata: ledger.Metadata{
			"purchaser_type": string(purchase.OwnerType),
			"purchaser_id":   purchase.OwnerID.String(),
			"credit_type":    string(purchase.CreditType),
		},
		CompletedAt: sql.NullTime{Time: time.Now(), Valid: true},
	})
}

func (s *service) Deduct(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related) (*ledger.Entry, error) {
	if units <= 0 {
		return nil, ErrInvalidUnits
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.DeductTx(ctx, tx, owner, creditType, units, related)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return entry, nil
}

func (s *service) DeductTx(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related) (*ledger.Entry, error) {
	if units <= 0 {
		return nil, ErrInvalidUnits
	}
	return s.applyTx(ctx, tx, owner, creditType, -units, ledger.ActionDeduct, related,
		fmt.Sprintf("deduction of %d %s credits", units, creditType), nil)
}

func (s *service) Refund(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related, reason string) (*ledger.Entry, error) {
	if units <= 0 {
		return nil, ErrInvalidUnits
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.RefundTx(ctx, tx, owner, creditType, units, related, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return entry, nil
}

func (s *service) RefundTx(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related, reason string) (*ledger.Entry, error) {
	if units <= 0 {
		return nil, ErrInvalidUnits
	}
	if reason == "" {
		reason = fmt.Sprintf("refund of %d %s credits", units, creditType)
	}
	return s.applyTx(ctx, tx, owner, creditType, units, ledger.ActionRefund, related, reason, nil)
}

func (s *service) Adjust(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, delta int64, reason string) (*ledger.Entry, error) {
	if delta == 0 {
		return nil, ErrInvalidUnits
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.applyTx(ctx, tx, owner, creditType, delta, ledger.ActionAdjustment, nil, reason, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("owner", owner.String()).
		Str("credit_type", string(creditType)).
		Int64("delta", delta).
		Str("reason", reason).
		Msg("balance adjustment applied")

	return entry, nil
}

func (s *service) CheckCredits(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64) (bool, int64, error) {
	if units <= 0 {
		return false, 0, ErrInvalidUnits
	}
	available, err := s.repo.GetCredit(ctx, owner, creditType)
	if err != nil {
		return false, 0, err
	}
	return available >= units, available, nil
}

func (s *service) Balances(ctx context.Context, owner ledger.Owner) (map[ledger.CreditType]int64, error) {
	return s.repo.Balances(ctx, owner)
}
