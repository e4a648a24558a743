package service

import (
	"context"
	"errors"

	"github.com/cardapioweb/cardapio/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// StaffRepository is interface for staff account lookups
type StaffRepository interface {
	// GetStaffByEmail returns a staff account by email
	GetStaffByEmail(ctx context.Context, email string) (*models.StaffUser, error)
}

// TokenService issues and verifies staff auth tokens
type TokenService interface {
	CreateToken(user *models.StaffUser) (string, error)
	VerifyToken(token string) (*models.TokenPayload, error)
}

// AuthService authenticates staff against their store-scoped accounts
type AuthService struct {
	repo  StaffRepository
	token TokenService
}

// NewAuthService creates new AuthService instance
func NewAuthService(repo StaffRepository, token TokenService) *AuthService {
	return &AuthService{repo: repo, token: token}
}

// Login verifies credentials and returns a signed token with the staff user.
// Unknown email and wrong password are indistinguishable to the caller.
func (as *AuthService) Login(ctx context.Context, email, password string) (string, *models.StaffUser, error) {
	user, err := as.repo.GetStaffByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return "", nil, models.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, models.ErrInvalidCredentials
	}

	token, err := as.token.CreateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}
