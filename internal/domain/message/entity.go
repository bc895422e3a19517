package message

import "github.com/shoplink/shoplink-api/internal/domain/ledger"

// Kind distinguishes the two billed message channels: user-initiated
// conversation replies and business-initiated outreach.
type Kind string

const (
	KindUserInitiated     Kind = "ui"
	KindBusinessInitiated Kind = "bi"
)

func (k Kind) Valid() bool {
	return k == KindUserInitiated || k == KindBusinessInitiated
}

// CreditType maps the channel to the credit class it consumes.
func (k Kind) CreditType() ledger.CreditType {
	if k == KindBusinessInitiated {
		return ledger.CreditMessageBI
	}
	return ledger.CreditMessageUI
}
