package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
	apperrors "github.com/jwalitptl/event-api/pkg/errors"
)

type operatorRepository struct {
	BaseRepository
}

func NewOperatorRepository(base BaseRepository) repository.OperatorRepository {
	return &operatorRepository{base}
}

func (r *operatorRepository) Create(ctx context.Context, operator *model.Operator) error {
	query := `
        INSERT INTO operators (id, email, name, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	now := time.Now()
	operator.ID = uuid.New()
	operator.CreatedAt = now
	operator.UpdatedAt = now

	_, err := r.GetDB().ExecContext(ctx, query,
		operator.ID,
		operator.Email,
		operator.Name,
		operator.PasswordHash,
		operator.CreatedAt,
		operator.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

func (r *operatorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	query := `SELECT * FROM operators WHERE id = $1`

	var operator model.Operator
	if err := r.GetDB().GetContext(ctx, &operator, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("operator", err)
		}
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &operator, nil
}

func (r *operatorRepository) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	query := `SELECT * FROM operators WHERE email = $1`

	var operator model.Operator
	if err := r.GetDB().GetContext(ctx, &operator, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("operator", err)
		}
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &operator, nil
}
