package models

// event types published to store channels
const (
	EventOrderNew    = "order_new"
	EventOrderUpdate = "order_update"
)

// Event is one state-change notification fanned out to push subscribers.
// JSON field names match what the tracking page and the kitchen display
// already parse.
type Event struct {
	Type          string        `json:"type,omitempty"`
	PublicID      string        `json:"publicId,omitempty"`
	Status        Status        `json:"status,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
}
