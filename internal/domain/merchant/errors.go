package merchant

import "errors"

var (
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrInvalidTier      = errors.New("invalid merchant tier")
	ErrInternal         = errors.New("internal error")
)
