package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OwnerType identifies which kind of account holds a wallet.
type OwnerType string

const (
	OwnerMerchant OwnerType = "merchant"
	OwnerAdmin    OwnerType = "admin"
	OwnerPlatform OwnerType = "platform"
)

// CreditType is one of the prepaid credit classes sold by the platform.
type CreditType string

const (
	CreditCoupon    CreditType = "coupon"
	CreditMessageUI CreditType = "message_ui"
	CreditMessageBI CreditType = "message_bi"
	CreditPaidAd    CreditType = "paid_ad"
)

// AllCreditTypes lists every credit class, in reporting order.
var AllCreditTypes = []CreditType{CreditCoupon, CreditMessageUI, CreditMessageBI, CreditPaidAd}

// Action classifies a ledger movement.
type Action string

const (
	ActionPurchase   Action = "purchase"
	ActionDeduct     Action = "deduct"
	ActionRefund     Action = "refund"
	ActionAdjustment Action = "adjustment"
)

// Owner is the wallet key: who the balance belongs to.
type Owner struct {
	Type OwnerType
	ID   uuid.UUID
}

// PlatformOwner is the single platform operator account.
var PlatformOwner = Owner{Type: OwnerPlatform, ID: uuid.Nil}

func (o Owner) String() string {
	return string(o.Type) + ":" + o.ID.String()
}

// Valid reports whether the owner type is one of the known kinds.
func (t OwnerType) Valid() bool {
	return t == OwnerMerchant || t == OwnerAdmin || t == OwnerPlatform
}

// Valid reports whether the credit type is one of the known classes.
func (t CreditType) Valid() bool {
	switch t {
	case CreditCoupon, CreditMessageUI, CreditMessageBI, CreditPaidAd:
		return true
	}
	return false
}

// Metadata is the structured key-value payload stored in the ledger row's
// JSONB column. Keys are documented per related_entity_type.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type: %T", src)
	}
}

// Entry is one immutable ledger row. Rows are only ever inserted; balance
// corrections are expressed as new adjustment entries.
type Entry struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	OwnerType         OwnerType  `db:"owner_type" json:"owner_type"`
	OwnerID           uuid.UUID  `db:"owner_id" json:"owner_id"`
	CreditType        CreditType `db:"credit_type" json:"credit_type"`
	Action            Action     `db:"action" json:"action"`
	Amount            int64      `db:"amount" json:"amount"`
	BalanceBefore     int64      `db:"balance_before" json:"balance_before"`
	BalanceAfter      int64      `db:"balance_after" json:"balance_after"`
	RelatedEntityType *string    `db:"related_entity_type" json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID `db:"related_entity_id" json:"related_entity_id,omitempty"`
	Description       string     `db:"description" json:"description"`
	Metadata          Metadata   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// Related points a ledger entry at the business object that caused it.
type Related struct {
	EntityType string
	EntityID   uuid.UUID
}

// SearchFilters provides admin-facing ledger filtering.
type SearchFilters struct {
	OwnerType         *OwnerType
	OwnerID           *uuid.UUID
	CreditType        *CreditType
	Action            *Action
	DateFrom          *time.Time
	DateTo            *time.Time
	RelatedEntityType *string
	RelatedEntityID   *uuid.UUID
	Limit             int
	Offset            int
}
