package message

import "errors"

var (
	ErrInvalidKind    = errors.New("invalid message kind")
	ErrDeliveryFailed = errors.New("message delivery failed")
)
