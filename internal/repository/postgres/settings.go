package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
)

type settingsRepository struct {
	BaseRepository
	defaults model.DispatchSettings
}

// NewSettingsRepository stores the single dispatch settings row. The
// defaults are returned until an administrator saves an override.
func NewSettingsRepository(base BaseRepository, defaults model.DispatchSettings) repository.SettingsRepository {
	return &settingsRepository{BaseRepository: base, defaults: defaults}
}

func (r *settingsRepository) Get(ctx context.Context) (*model.DispatchSettings, error) {
	query := `
        SELECT smtp_enabled, smtp_host, smtp_port, smtp_user, smtp_password,
               sender_email, hourly_ceiling, daily_ceiling, updated_at
        FROM dispatch_settings LIMIT 1
    `

	var settings model.DispatchSettings
	if err := r.GetDB().GetContext(ctx, &settings, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := r.defaults
			return &defaults, nil
		}
		return nil, fmt.Errorf("failed to get dispatch settings: %w", err)
	}
	return &settings, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings *model.DispatchSettings) error {
	query := `
        INSERT INTO dispatch_settings (
            id, smtp_enabled, smtp_host, smtp_port, smtp_user, smtp_password,
            sender_email, hourly_ceiling, daily_ceiling, updated_at
        ) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE
        SET smtp_enabled = $1, smtp_host = $2, smtp_port = $3, smtp_user = $4,
            smtp_password = $5, sender_email = $6, hourly_ceiling = $7,
            daily_ceiling = $8, updated_at = $9
    `

	settings.UpdatedAt = time.Now()
	_, err := r.GetDB().ExecContext(ctx, query,
		settings.SMTPEnabled,
		settings.SMTPHost,
		settings.SMTPPort,
		settings.SMTPUser,
		settings.SMTPPassword,
		settings.SenderEmail,
		settings.HourlyCeiling,
		settings.DailyCeiling,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispatch settings: %w", err)
	}
	return nil
}
