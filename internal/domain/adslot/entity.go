package adslot

import (
	"time"

	"github.com/google/uuid"
)

// Slot is one of the fixed advertisement placement positions. The set is
// small and enumerable; occupancy is always derived from active grants,
// never stored.
type Slot string

const (
	SlotHomeTop      Slot = "home_top"
	SlotHomeBottom   Slot = "home_bottom"
	SlotSearchBanner Slot = "search_banner"
	SlotCategorySide Slot = "category_side"
)

// AllSlots lists every placement position.
var AllSlots = []Slot{SlotHomeTop, SlotHomeBottom, SlotSearchBanner, SlotCategorySide}

// Valid reports whether the slot name is one of the known positions.
func (s Slot) Valid() bool {
	switch s {
	case SlotHomeTop, SlotHomeBottom, SlotSearchBanner, SlotCategorySide:
		return true
	}
	return false
}

// GrantStatus is the lifecycle of a paid ad grant.
type GrantStatus string

const (
	GrantActive  GrantStatus = "active"
	GrantExpired GrantStatus = "expired"
)

// Grant is a time-boxed exclusive hold on one placement slot. The ad credit
// is consumed when the grant is created; expiry frees the slot without a
// refund, like a non-refundable reservation.
type Grant struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	MerchantID uuid.UUID     `db:"merchant_id" json:"merchant_id"`
	AdminID    uuid.NullUUID `db:"admin_id" json:"admin_id,omitempty"`
	Slot       Slot          `db:"slot" json:"slot"`
	StartAt    time.Time     `db:"start_at" json:"start_at"`
	EndAt      time.Time     `db:"end_at" json:"end_at"`
	Status     GrantStatus   `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the grant currently occupies its slot.
func (g *Grant) IsActive(now time.Time) bool {
	return g.Status == GrantActive && g.EndAt.After(now)
}
