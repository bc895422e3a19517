package coupon

import (
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchActive    BatchStatus = "active"
	BatchExpired   BatchStatus = "expired"
	BatchCancelled BatchStatus = "cancelled"
)

type UnitStatus string

const (
	UnitCreated UnitStatus = "created"
	UnitIssued  UnitStatus = "issued"
	UnitExpired UnitStatus = "expired"
)

// Batch is a merchant's time-boxed block of coupon units. Credits are
// consumed up front, one per unit; whatever is still unissued when the batch
// ends comes back through the reclaimer.
type Batch struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	MerchantID uuid.UUID   `db:"merchant_id" json:"merchant_id"`
	Quantity   int64       `db:"quantity" json:"quantity"`
	Status     BatchStatus `db:"status" json:"status"`
	StartAt    time.Time   `db:"start_at" json:"start_at"`
	EndAt      time.Time   `db:"end_at" json:"end_at"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// Unit is a single redeemable coupon inside a batch.
type Unit struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	BatchID  uuid.UUID  `db:"batch_id" json:"batch_id"`
	Code     string     `db:"code" json:"code"`
	Status   UnitStatus `db:"status" json:"status"`
	IssuedTo *string    `db:"issued_to" json:"issued_to,omitempty"`
	IssuedAt *time.Time `db:"issued_at" json:"issued_at,omitempty"`
}
