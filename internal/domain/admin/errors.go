package admin

import "errors"

var (
	ErrAdminNotFound = errors.New("admin not found")
	ErrInternal      = errors.New("internal error")
)
