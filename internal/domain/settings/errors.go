package settings

import "errors"

var (
	ErrInvalidRate = errors.New("invalid commission rate: must be between 0 and 100")
	ErrInternal    = errors.New("internal error")
)
