package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/pkg/messaging"
)

// Service sends billed outbound messages. Delivery gates deduction: the
// provider must confirm before a credit is consumed, never the reverse.
type Service struct {
	provider    messaging.Provider
	coordinator credit.Coordinator
}

func NewService(provider messaging.Provider, coordinator credit.Coordinator) *Service {
	return &Service{provider: provider, coordinator: coordinator}
}

// Send delivers one message on the merchant's behalf and charges one credit
// of the channel's class after the gateway confirms.
func (s *Service) Send(ctx context.Context, merchantID uuid.UUID, kind Kind, phone, content string) (*ledger.Entry, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	owner := ledger.Owner{Type: ledger.OwnerMerchant, ID: merchantID}
	creditType := kind.CreditType()

	// Fast-fail pre-check; the authoritative check happens again inside
	// Deduct under the row lock.
	sufficient, available, err := s.coordinator.CheckCredits(ctx, owner, creditType, 1)
	if err != nil {
		return nil, err
	}
	if !sufficient {
		log.Warn().
			Str("merchant_id", merchantID.String()).
			Str("credit_type", string(creditType)).
			Int64("available", available).
			Msg("message blocked on balance pre-check")
		return nil, credit.ErrInsufficientCredits
	}

	if err := s.provider.Send(ctx, phone, content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	entry, err := s.coordinator.Deduct(ctx, owner, creditType, 1, nil)
	if err != nil {
		// Delivered but not charged: surface loudly, the delta needs an
		// operator adjustment.
		log.Error().Err(err).
			Str("merchant_id", merchantID.String()).
			Str("credit_type", string(creditType)).
			Msg("message delivered but deduction failed")
		return nil, err
	}

	log.Info().
		Str("merchant_id", merchantID.String()).
		Str("credit_type", string(creditType)).
		Str("entry_id", entry.ID.String()).
		Msg("message sent")

	return entry, nil
}
