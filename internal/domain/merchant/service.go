package merchant

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
)

// WalletProvisioner creates the wallet rows alongside the owner entity.
// Satisfied by the credit repository.
type WalletProvisioner interface {
	EnsureWallet(ctx context.Context, owner ledger.Owner) error
	Deactivate(ctx context.Context, owner ledger.Owner) error
}

// Service manages merchant accounts. It also acts as the coordinator's
// merchant directory for commission splitting.
type Service struct {
	repo    *Repository
	wallets WalletProvisioner
}

func NewService(repo *Repository, wallets WalletProvisioner) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// Create onboards a merchant and provisions its wallet in the same flow.
func (s *Service) Create(ctx context.Context, name string, tier commission.Tier, adminID *uuid.UUID) (*Merchant, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}

	m := &Merchant{Name: name, Tier: tier}
	if adminID != nil {
		m.AdminID = uuid.NullUUID{UUID: *adminID, Valid: true}
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	owner := ledger.Owner{Type: ledger.OwnerMerchant, ID: m.ID}
	if err := s.wallets.EnsureWallet(ctx, owner); err != nil {
		return nil, err
	}

	log.Info().
		Str("merchant_id", m.ID.String()).
		Str("tier", string(m.Tier)).
		Bool("has_admin", m.AdminID.Valid).
		Msg("merchant created")

	return m, nil
}

// Get returns one merchant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Merchant, error) {
	return s.repo.GetByID(ctx, id)
}

// Deactivate disables the merchant and its wallet. History is retained.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.wallets.Deactivate(ctx, ledger.Owner{Type: ledger.OwnerMerchant, ID: id})
}

// Lookup implements credit.MerchantDirectory.
func (s *Service) Lookup(ctx context.Context, merchantID uuid.UUID) (credit.MerchantInfo, error) {
	m, err := s.repo.GetByID(ctx, merchantID)
	if err != nil {
		if err == ErrMerchantNotFound {
			return credit.MerchantInfo{}, credit.ErrUnknownOwner
		}
		return credit.MerchantInfo{}, err
	}

	info := credit.MerchantInfo{Tier: m.Tier}
	if m.AdminID.Valid {
		id := m.AdminID.UUID
		info.IntroducingAdmin = &id
	}
	return info, nil
}
