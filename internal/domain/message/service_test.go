package message_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/domain/message"
)

type fakeProvider struct {
	calls int
	err   error
}

func (p *fakeProvider) Send(ctx context.Context, phone, content string) error {
	p.calls++
	return p.err
}

// fakeCoordinator tracks a single in-memory balance per credit type.
type fakeCoordinator struct {
	balances map[ledger.CreditType]int64
	deducts  int
}

func (c *fakeCoordinator) CheckCredits(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64) (bool, int64, error) {
	available := c.balances[creditType]
	return available >= units, available, nil
}

func (c *fakeCoordinator) Deduct(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related) (*ledger.Entry, error) {
	c.deducts++
	if c.balances[creditType] < units {
		return nil, credit.ErrInsufficientCredits
	}
	c.balances[creditType] -= units
	return &ledger.Entry{
		ID:           uuid.New(),
		OwnerType:    owner.Type,
		OwnerID:      owner.ID,
		CreditType:   creditType,
		Action:       ledger.ActionDeduct,
		Amount:       -units,
		BalanceAfter: c.balances[creditType],
	}, nil
}

func (c *fakeCoordinator) Purchase(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units, unitPrice int64) (*ledger.Entry, commission.Split, error) {
	return nil, commission.Split{}, errors.New("not implemented")
}

func (c *fakeCoordinator) DeductTx(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related) (*ledger.Entry, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeCoordinator) Refund(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related, reason string) (*ledger.Entry, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeCoordinator) RefundTx(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related, reason string) (*ledger.Entry, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeCoordinator) Adjust(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, delta int64, reason string) (*ledger.Entry, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeCoordinator) Balances(ctx context.Context, owner ledger.Owner) (map[ledger.CreditType]int64, error) {
	return c.balances, nil
}

func TestSendChargesOneCredit(t *testing.T) {
	provider := &fakeProvider{}
	coord := &fakeCoordinator{balances: map[ledger.CreditType]int64{ledger.CreditMessageUI: 2}}
	svc := message.NewService(provider, coord)

	entry, err := svc.Send(context.Background(), uuid.New(), message.KindUserInitiated, "+77001234567", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.calls)
	}
	if entry.CreditType != ledger.CreditMessageUI || entry.Amount != -1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if coord.balances[ledger.CreditMessageUI] != 1 {
		t.Fatalf("expected balance 1, got %d", coord.balances[ledger.CreditMessageUI])
	}
}

func TestSendBlockedWithoutCredits(t *testing.T) {
	provider := &fakeProvider{}
	coord := &fakeCoordinator{balances: map[ledger.CreditType]int64{}}
	svc := message.NewService(provider, coord)

	_, err := svc.Send(context.Background(), uuid.New(), message.KindBusinessInitiated, "+77001234567", "hello")
	if !errors.Is(err, credit.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatal("provider must not be called when the balance pre-check fails")
	}
	if coord.deducts != 0 {
		t.Fatal("no deduction may happen without delivery")
	}
}

func TestSendDeliveryFailureDoesNotCharge(t *testing.T) {
	provider := &fakeProvider{err: errors.New("gateway timeout")}
	coord := &fakeCoordinator{balances: map[ledger.CreditType]int64{ledger.CreditMessageUI: 5}}
	svc := message.NewService(provider, coord)

	_, err := svc.Send(context.Background(), uuid.New(), message.KindUserInitiated, "+77001234567", "hello")
	if !errors.Is(err, message.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if coord.deducts != 0 {
		t.Fatal("failed delivery must not consume a credit")
	}
	if coord.balances[ledger.CreditMessageUI] != 5 {
		t.Fatalf("expected balance unchanged, got %d", coord.balances[ledger.CreditMessageUI])
	}
}

func TestSendRejectsUnknownKind(t *testing.T) {
	svc := message.NewService(&fakeProvider{}, &fakeCoordinator{balances: map[ledger.CreditType]int64{}})

	_, err := svc.Send(context.Background(), uuid.New(), message.Kind("push"), "+77001234567", "hello")
	if !errors.Is(err, message.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
