package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
)

// WalletProvisioner creates wallet rows alongside the admin account.
type WalletProvisioner interface {
	EnsureWallet(ctx context.Context, owner ledger.Owner) error
	GetWallet(ctx context.Context, owner ledger.Owner) (*credit.Wallet, error)
}

type Service struct {
	repo    *Repository
	wallets WalletProvisioner
}

func NewService(repo *Repository, wallets WalletProvisioner) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// Create onboards a reseller and provisions its commission wallet.
func (s *Service) Create(ctx context.Context, name, email string) (*Admin, error) {
	a := &Admin{Name: name, Email: email}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.wallets.EnsureWallet(ctx, ledger.Owner{Type: ledger.OwnerAdmin, ID: a.ID}); err != nil {
		return nil, err
	}

	log.Info().Str("admin_id", a.ID.String()).Msg("admin created")
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Admin, error) {
	return s.repo.List(ctx, limit, offset)
}

// Earnings returns the admin's commission wallet summary.
func (s *Service) Earnings(ctx context.Context, id uuid.UUID) (*Earnings, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	w, err := s.wallets.GetWallet(ctx, ledger.Owner{Type: ledger.OwnerAdmin, ID: id})
	if err != nil {
		return nil, err
	}

	return &Earnings{
		Balance:       w.Balance,
		TotalEarnings: w.TotalEarnings,
		PendingAmount: w.PendingAmount,
	}, nil
}
