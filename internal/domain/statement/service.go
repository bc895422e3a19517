package statement

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/pkg/storage"
)

// Statement is a point-in-time reconciliation view over one owner's ledger.
// Nothing here mutates: opening balances come from the last entry before the
// window, closing balances from the wallet rows.
type Statement struct {
	Owner     ledger.Owner                `json:"owner"`
	Start     time.Time                   `json:"start"`
	End       time.Time                   `json:"end"`
	Opening   map[ledger.CreditType]int64 `json:"opening"`
	Closing   map[ledger.CreditType]int64 `json:"closing"`
	Movements []ledger.Entry              `json:"movements"`
}

type Service struct {
	entries *ledger.Repository
	credits *credit.Repository
	archive storage.Storage
}

// NewService builds the aggregator. archive may be nil when statement
// archival is not configured.
func NewService(entries *ledger.Repository, credits *credit.Repository, archive storage.Storage) *Service {
	return &Service{entries: entries, credits: credits, archive: archive}
}

// OpeningBalance returns the balance the owner held just before the given
// instant: the balance_after of the latest entry created before it, or 0
// when no such entry exists.
func (s *Service) OpeningBalance(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, before time.Time) (int64, error) {
	e, err := s.entries.LatestBefore(ctx, owner, creditType, before)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return 0, nil
	}
	return e.BalanceAfter, nil
}

// ClosingBalance returns the owner's current balance for one credit type.
func (s *Service) ClosingBalance(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType) (int64, error) {
	return s.credits.GetCredit(ctx, owner, creditType)
}

// Movements returns the owner's ledger entries within [start, end], both
// ends inclusive, ascending by creation time, across all credit types.
func (s *Service) Movements(ctx context.Context, owner ledger.Owner, start, end time.Time) ([]ledger.Entry, error) {
	return s.entries.Movements(ctx, owner, start, end)
}

// Build assembles the full statement for the window.
func (s *Service) Build(ctx context.Context, owner ledger.Owner, start, end time.Time) (*Statement, error) {
	st := &Statement{
		Owner:   owner,
		Start:   start,
		End:     end,
		Opening: make(map[ledger.CreditType]int64, len(ledger.AllCreditTypes)),
		Closing: make(map[ledger.CreditType]int64, len(ledger.AllCreditTypes)),
	}

	for _, ct := range ledger.AllCreditTypes {
		opening, err := s.OpeningBalance(ctx, owner, ct, start)
		if err != nil {
			return nil, err
		}
		st.Opening[ct] = opening

		closing, err := s.entries.LatestThrough(ctx, owner, ct, end)
		if err != nil {
			return nil, err
		}
		if closing == nil {
			st.Closing[ct] = opening
		} else {
			st.Closing[ct] = closing.BalanceAfter
		}
	}

	movements, err := s.Movements(ctx, owner, start, end)
	if err != nil {
		return nil, err
	}
	st.Movements = movements

	return st, nil
}

// Archive renders the statement as CSV and stores it in the configured
// object storage. Returns the storage key.
func (s *Service) Archive(ctx context.Context, owner ledger.Owner, start, end time.Time) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("statement archive storage is not configured")
	}

	st, err := s.Build(ctx, owner, start, end)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, st); err != nil {
		return "", err
	}

	key := fmt.Sprintf("statements/%s/%s/%s.csv",
		owner.Type, owner.ID, start.UTC().Format("2006-01"))
	if err := s.archive.Save(ctx, key, &buf, "text/csv"); err != nil {
		return "", fmt.Errorf("archive statement: %w", err)
	}

	log.Info().
		Str("owner", owner.String()).
		Str("key", key).
		Int("movements", len(st.Movements)).
		Msg("statement archived")

	return key, nil
}

func writeCSV(buf *bytes.Buffer, st *Statement) error {
	w := csv.NewWriter(buf)

	if err := w.Write([]string{"created_at", "credit_type", "action", "amount", "balance_before", "balance_after", "description"}); err != nil {
		return err
	}
	for _, e := range st.Movements {
		record := []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			string(e.CreditType),
			string(e.Action),
			strconv.FormatInt(e.Amount, 10),
			strconv.FormatInt(e.BalanceBefore, 10),
			strconv.FormatInt(e.BalanceAfter, 10),
			e.Description,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	for _, ct := range ledger.AllCreditTypes {
		summary := []string{
			"", string(ct), "summary",
			"", strconv.FormatInt(st.Opening[ct], 10), strconv.FormatInt(st.Closing[ct], 10), "opening/closing",
		}
		if err := w.Write(summary); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
