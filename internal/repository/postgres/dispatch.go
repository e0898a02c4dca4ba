package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
)

type dispatchRepository struct {
	BaseRepository
}

func NewDispatchRepository(base BaseRepository) repository.DispatchRepository {
	return &dispatchRepository{base}
}

func (r *dispatchRepository) Create(ctx context.Context, record *model.DispatchRecord) error {
	query := `
        INSERT INTO dispatch_records (
            id, event_id, invitation_id, operator_id, recipient,
            subject, outcome, error_message, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		record.ID,
		record.EventID,
		record.InvitationID,
		record.OperatorID,
		record.Recipient,
		record.Subject,
		record.Outcome,
		record.ErrorMessage,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatch record: %w", err)
	}
	return nil
}

func (r *dispatchRepository) ListForEvent(ctx context.Context, eventID uuid.UUID, outcome *model.DispatchOutcome, limit int) ([]*model.DispatchRecord, error) {
	query := `SELECT * FROM dispatch_records WHERE event_id = $1`
	args := []interface{}{eventID}

	if outcome != nil {
		args = append(args, *outcome)
		query += fmt.Sprintf(" AND outcome = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var records []*model.DispatchRecord
	if err := r.GetDB().SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list dispatch records: %w", err)
	}
	return records, nil
}

// CountForOperatorSince counts quota-consuming attempts. RATE_LIMITED rows
// are rejected attempts, not consumed quota, and are excluded.
func (r *dispatchRepository) CountForOperatorSince(ctx context.Context, operatorID uuid.UUID, since time.Time) (int, error) {
	query := `
        SELECT COUNT(*) FROM dispatch_records
        WHERE operator_id = $1
        AND created_at >= $2
        AND outcome <> $3
    `

	var count int
	if err := r.GetDB().GetContext(ctx, &count, query, operatorID, since, model.DispatchOutcomeRateLimited); err != nil {
		return 0, fmt.Errorf("failed to count dispatch records: %w", err)
	}
	return count, nil
}

func (r *dispatchRepository) StatsForEvent(ctx context.Context, eventID uuid.UUID) (*model.DispatchStats, error) {
	query := `
        SELECT
            COUNT(*) AS total,
            COUNT(*) FILTER (WHERE outcome = 'SENT') AS sent,
            COUNT(*) FILTER (WHERE outcome = 'FAILED') AS failed,
            COUNT(*) FILTER (WHERE outcome = 'DISABLED') AS disabled,
            COUNT(*) FILTER (WHERE outcome = 'RATE_LIMITED') AS rate_limited
        FROM dispatch_records
        WHERE event_id = $1
    `

	var stats model.DispatchStats
	if err := r.GetDB().GetContext(ctx, &stats, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to get dispatch stats: %w", err)
	}
	return &stats, nil
}

func (r *dispatchRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM dispatch_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete dispatch records: %w", err)
	}
	return result.RowsAffected()
}
