package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
	apperrors "github.com/jwalitptl/event-api/pkg/errors"
)

type eventRepository struct {
	BaseRepository
}

func NewEventRepository(base BaseRepository) repository.EventRepository {
	return &eventRepository{base}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
        INSERT INTO events (
            id, name, description, starts_at, ends_at,
            sender_email, subject_template, body_template, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	now := time.Now()
	event.ID = uuid.New()
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := r.GetDB().ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		event.StartsAt,
		event.EndsAt,
		event.SenderEmail,
		event.SubjectTmpl,
		event.BodyTmpl,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT * FROM events WHERE id = $1`

	var event model.Event
	if err := r.GetDB().GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("event", err)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	query := `
        UPDATE events
        SET name = $2, description = $3, starts_at = $4, ends_at = $5,
            sender_email = $6, subject_template = $7, body_template = $8, updated_at = $9
        WHERE id = $1
    `

	event.UpdatedAt = time.Now()
	result, err := r.GetDB().ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		event.StartsAt,
		event.EndsAt,
		event.SenderEmail,
		event.SubjectTmpl,
		event.BodyTmpl,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("event", nil)
	}
	return nil
}

// Delete removes the event together with its invitations and dispatch
// records. Partial deletion would leave dangling audit references, so the
// whole cascade runs in one transaction.
func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dispatch_records WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete dispatch records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invitations WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete invitations: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.NotFound("event", nil)
		}
		return nil
	})
}

func (r *eventRepository) List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	query := `SELECT * FROM events WHERE 1=1`
	var args []interface{}

	if filters != nil {
		if filters.SearchTerm != "" {
			args = append(args, "%"+filters.SearchTerm+"%")
			query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
		}
		if !filters.From.IsZero() {
			args = append(args, filters.From)
			query += fmt.Sprintf(" AND ends_at >= $%d", len(args))
		}
		if !filters.To.IsZero() {
			args = append(args, filters.To)
			query += fmt.Sprintf(" AND starts_at <= $%d", len(args))
		}
	}

	query += " ORDER BY starts_at DESC"

	var events []*model.Event
	if err := r.GetDB().SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
