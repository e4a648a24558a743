package service

import (
	"fmt"
	"time"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

const tokenTTL = 12 * time.Hour

type staffClaims struct {
	jwt.RegisteredClaims
	UserID  uint64 `json:"uid"`
	StoreID uint64 `json:"sid"`
	Email   string `json:"email"`
}

// JWTToken implements TokenService with HMAC-signed JWTs
type JWTToken struct {
	key []byte
}

// NewJWTToken creates new JWTToken instance
func NewJWTToken(key []byte) *JWTToken {
	return &JWTToken{key: key}
}

// CreateToken signs a token carrying the staff user's store scope
func (t *JWTToken) CreateToken(user *models.StaffUser) (string, error) {
	now := time.Now()
	claims := staffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		UserID:  user.ID,
		StoreID: user.StoreID,
		Email:   user.Email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// VerifyToken parses and validates the token, returning its payload
func (t *JWTToken) VerifyToken(token string) (*models.TokenPayload, error) {
	claims := staffClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, models.ErrInvalidCredentials
	}

	return &models.TokenPayload{
		UserID:  claims.UserID,
		StoreID: claims.StoreID,
		Email:   claims.Email,
	}, nil
}
