package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/config"
	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
	apperrors "github.com/jwalitptl/event-api/pkg/errors"
	"github.com/jwalitptl/event-api/pkg/security"
)

// Claims carried in an operator token.
type Claims struct {
	OperatorID string `json:"operator_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	operators repository.OperatorRepository
	hasher    security.PasswordHasher
	cfg       config.JWTConfig
}

func NewService(operators repository.OperatorRepository, hasher security.PasswordHasher, cfg config.JWTConfig) *Service {
	return &Service{
		operators: operators,
		hasher:    hasher,
		cfg:       cfg,
	}
}

// Login checks operator credentials and issues a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.Operator, error) {
	operator, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	if err := s.hasher.Compare(operator.PasswordHash, password); err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	expiry := time.Duration(s.cfg.ExpiryHours) * time.Hour
	claims := &Claims{
		OperatorID: operator.ID.String(),
		Email:      operator.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   operator.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, operator, nil
}

// ValidateToken parses and verifies an operator token.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if !token.Valid {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid token"))
	}

	if _, err := uuid.Parse(claims.OperatorID); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid operator ID in token"))
	}
	return claims, nil
}
