package models

import "time"

// Store is the tenant. Every read and write in the system is scoped to
// exactly one store.
type Store struct {
	ID           uint64
	Name         string
	Slug         string
	LogoURL      string
	ThemePrimary string
	DeliveryFee  int64
	PackagingFee int64
	CreatedAt    time.Time
}

// Table is a dine-in table belonging to a store.
type Table struct {
	ID      uint64
	StoreID uint64
	Name    string
	Active  bool
}

// StaffUser is a kitchen/admin account scoped to one store.
type StaffUser struct {
	ID           uint64
	StoreID      uint64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// TokenPayload is the verified content of a staff auth token.
type TokenPayload struct {
	UserID  uint64
	StoreID uint64
	Email   string
}
