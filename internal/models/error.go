package models

import "errors"

var (
	ErrConflictData       = errors.New("data conflicts with existing data")
	ErrDataNotFound       = errors.New("data not found")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidOrderType   = errors.New("unknown order type")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrTerminalStatus     = errors.New("order is in a terminal status")
	ErrEmptyCart          = errors.New("cart has no priceable items")
	ErrTableUnavailable   = errors.New("table is not available")
	ErrUpstreamPayment    = errors.New("payment provider request failed")
	ErrInternalError      = errors.New("internal error")
)
