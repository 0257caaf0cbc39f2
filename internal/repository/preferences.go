package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/authcore/internal/model"
)

type PreferencesRepository interface {
	ByUserID(ctx context.Context, userID string) (*model.Preferences, error)
}

type preferencesRepository struct {
	db *sqlx.DB
}

func NewPreferencesRepository(db *sqlx.DB) PreferencesRepository {
	return &preferencesRepository{db: db}
}

func (r *preferencesRepository) ByUserID(ctx context.Context, userID string) (*model.Preferences, error) {
	var prefs model.Preferences
	err := r.db.GetContext(ctx, &prefs, `
		SELECT id, user_id, currency, language, notifications_enabled, email_notifications, created_at, updated_at
		FROM user_preferences WHERE user_id = $1
	`, userID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPreferencesNotFound
	}
	if err != nil {
		return nil, err
	}

	return &prefs, nil
}

// insertPreferences writes prefs through a DB or a Tx. With ignoreExisting
// an existing row for the same user is left untouched.
func insertPreferences(ctx context.Context, exec sqlx.ExecerContext, prefs *model.Preferences, ignoreExisting bool) error {
	if prefs.ID == "" {
		prefs.ID = uuid.New().String()
	}

	query := `
		INSERT INTO user_preferences (id, user_id, currency, language, notifications_enabled, email_notifications, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if ignoreExisting {
		query += ` ON CONFLICT (user_id) DO NOTHING`
	}

	_, err := exec.ExecContext(ctx, query, prefs.ID, prefs.UserID, prefs.Currency, prefs.Language,
		prefs.NotificationsEnabled, prefs.EmailNotifications, prefs.CreatedAt, prefs.UpdatedAt)
	return err
}
