package ledger_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
)

func TestCheckChain(t *testing.T) {
	entry := func(before, amount int64) ledger.Entry {
		return ledger.Entry{
			ID:            uuid.New(),
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  before + amount,
		}
	}

	t.Run("empty chain is valid", func(t *testing.T) {
		if err := ledger.CheckChain(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("valid chain", func(t *testing.T) {
		entries := []ledger.Entry{
			entry(0, 100),
			entry(100, -30),
			entry(70, 30),
			entry(100, -100),
		}
		if err := ledger.CheckChain(entries); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("amount mismatch", func(t *testing.T) {
		broken := entry(0, 100)
		broken.BalanceAfter = 99
		err := ledger.CheckChain([]ledger.Entry{broken})
		if !errors.Is(err, ledger.ErrBrokenChain) {
			t.Fatalf("expected ErrBrokenChain, got %v", err)
		}
	})

	t.Run("gap between entries", func(t *testing.T) {
		entries := []ledger.Entry{
			entry(0, 100),
			entry(90, -30),
		}
		err := ledger.CheckChain(entries)
		if !errors.Is(err, ledger.ErrBrokenChain) {
			t.Fatalf("expected ErrBrokenChain, got %v", err)
		}
	})
}

func TestOwnerTypeValid(t *testing.T) {
	for _, ot := range []ledger.OwnerType{ledger.OwnerMerchant, ledger.OwnerAdmin, ledger.OwnerPlatform} {
		if !ot.Valid() {
			t.Errorf("expected %q to be valid", ot)
		}
	}
	if ledger.OwnerType("customer").Valid() {
		t.Error("expected unknown owner type to be invalid")
	}
}

func TestCreditTypeValid(t *testing.T) {
	for _, ct := range []ledger.CreditType{
		ledger.CreditCoupon, ledger.CreditMessageUI, ledger.CreditMessageBI, ledger.CreditPaidAd,
	} {
		if !ct.Valid() {
			t.Errorf("expected %q to be valid", ct)
		}
	}
	if ledger.CreditType("gift_card").Valid() {
		t.Error("expected unknown credit type to be invalid")
	}
}
