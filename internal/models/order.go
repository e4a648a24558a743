package models

import "time"

// Order is the central entity. Money fields are snapshots computed once at
// creation and never rewritten; later payment events touch only the payment
// and status fields.
type Order struct {
	ID              uint64
	PublicID        string
	StoreID         uint64
	Type            OrderType
	TableID         *uint64
	CustomerName    string
	CustomerPhone   string
	Address         []byte
	Subtotal        int64
	DeliveryFee     int64
	PackagingFee    int64
	Discount        int64
	Total           int64
	PaymentStatus   PaymentStatus
	Status          Status
	PaymentProvider string
	PaymentRef      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Items           []OrderItem
}

// OrderItem is a line snapshot: name and unit price are copied from the
// product at order time, so later catalog edits never touch historical orders.
type OrderItem struct {
	ID        uint64
	OrderID   uint64
	ProductID uint64
	Name      string
	UnitPrice int64
	Quantity  int32
	Options   []ItemOption
}

// ItemOption is a chosen option snapshot attached to one order line.
type ItemOption struct {
	ID          uint64
	OrderItemID uint64
	OptionID    *uint64
	Name        string
	Price       int64
}

// PricedOrder is the pricing engine output: a fully priced, line-snapshotted
// structure ready for persistence.
type PricedOrder struct {
	StoreID      uint64
	Type         OrderType
	Items        []PricedItem
	Subtotal     int64
	DeliveryFee  int64
	PackagingFee int64
	Discount     int64
	Total        int64
}

// PricedItem is a snapshot of one line priced from trusted catalog rows.
type PricedItem struct {
	ProductID uint64
	Name      string
	UnitPrice int64
	Quantity  int32
	Options   []PricedOption
}

// PricedOption is a snapshot of one chosen option.
type PricedOption struct {
	OptionID uint64
	Name     string
	Price    int64
}

// PaymentUpdate carries the payment fields a reconciled callback may rewrite.
type PaymentUpdate struct {
	PaymentStatus PaymentStatus
	Status        Status
	Provider      string
	Ref           string
}
