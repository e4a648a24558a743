package models

// OrderType is how the customer receives the order.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
)

// ParseOrderType validates raw order type
func ParseOrderType(s string) (OrderType, error) {
	switch t := OrderType(s); t {
	case OrderTypeDineIn, OrderTypePickup, OrderTypeDelivery:
		return t, nil
	}
	return "", ErrInvalidOrderType
}

// Status is the fulfillment axis of an order, independent of payment.
type Status string

const (
	StatusReceived       Status = "received"
	StatusAccepted       Status = "accepted"
	StatusInKitchen      Status = "in_kitchen"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ParseStatus validates raw fulfillment status
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusReceived, StatusAccepted, StatusInKitchen, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Terminal reports whether the order can no longer be progressed by staff.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentStatus is the payment axis of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ParsePaymentStatus validates raw payment status
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// CanTransition reports whether a reconciled payment status may replace the
// current one. A paid order never regresses to pending or failed; refunded is
// terminal. Equal statuses are a no-op, not a transition.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case PaymentPending:
		return true
	case PaymentFailed:
		return next == PaymentPaid || next == PaymentRefunded
	case PaymentPaid:
		return next == PaymentRefunded
	default:
		return false
	}
}
