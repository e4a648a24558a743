package repository

import (
	"context"
	"errors"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/cardapioweb/cardapio/internal/repository/postgres"
	"github.com/jackc/pgx/v5"
)

const selectStaffByEmailQuery = `
						SELECT id, store_id, email, password_hash, role, created_at FROM staff_users
						WHERE email = $1
`

// StaffRepository implements staff account access over postgres
type StaffRepository struct {
	db *postgres.DB
}

// NewStaffRepository creates new StaffRepository instance
func NewStaffRepository(db *postgres.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// GetStaffByEmail returns a staff account by email
func (sr *StaffRepository) GetStaffByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	user := models.StaffUser{}
	err := sr.db.QueryRow(ctx, selectStaffByEmailQuery, email).
		Scan(&user.ID, &user.StoreID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &user, nil
}
