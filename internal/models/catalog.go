package models

import "time"

// Category groups products on the public menu.
type Category struct {
	ID       uint64
	StoreID  uint64
	Name     string
	Position int32
}

// Product is a catalog item. Price is in minor currency units (cents); the
// order core only ever reads it, at order-creation time.
type Product struct {
	ID          uint64
	StoreID     uint64
	CategoryID  uint64
	Name        string
	Description string
	Price       int64
	ImageURL    string
	Active      bool
}

// OptionGroup is a set of options a product may be customized with.
type OptionGroup struct {
	ID       uint64
	StoreID  uint64
	Name     string
	Min      int32
	Max      int32
	Required bool
	Options  []Option
}

// Option is a single customization with its own price in cents.
type Option struct {
	ID      uint64
	StoreID uint64
	GroupID uint64
	Name    string
	Price   int64
}

// coupon type
const (
	CouponPercentage = "percentage"
	CouponFixed      = "fixed"
)

// Coupon is a store discount code.
type Coupon struct {
	ID        uint64
	StoreID   uint64
	Code      string
	Type      string
	Value     int64
	Active    bool
	ExpiresAt *time.Time
}

// Menu is the public catalog of one store.
type Menu struct {
	Store        *Store
	Categories   []Category
	Products     []Product
	OptionGroups []OptionGroup
}
