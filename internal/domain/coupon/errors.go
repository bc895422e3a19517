package coupon

import "errors"

var (
	ErrBatchNotFound   = errors.New("coupon batch not found")
	ErrBatchNotActive  = errors.New("coupon batch is not active")
	ErrUnitNotFound    = errors.New("coupon not found")
	ErrUnitNotIssuable = errors.New("coupon is not issuable")
	ErrInvalidQuantity = errors.New("invalid coupon quantity")
	ErrInvalidPeriod   = errors.New("invalid coupon batch period")
	ErrInternal        = errors.New("internal error")
)
