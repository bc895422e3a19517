package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims carries the calling owner's identity. Authentication itself happens
// upstream; this service only signs and verifies identity tokens for the
// accounting API.
type Claims struct {
	OwnerType ledger.OwnerType `json:"owner_type"`
	OwnerID   uuid.UUID        `json:"owner_id"`
	jwt.RegisteredClaims
}

// Owner returns the wallet owner the token speaks for.
func (c *Claims) Owner() ledger.Owner {
	return ledger.Owner{Type: c.OwnerType, ID: c.OwnerID}
}

// Service handles identity token operations
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates the token service
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Generate signs a token for the owner
func (s *Service) Generate(owner ledger.Owner) (string, error) {
	now := time.Now()
	claims := Claims{
		OwnerType: owner.Type,
		OwnerID:   owner.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a token
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.OwnerType.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) TTL() time.Duration { return s.ttl }
