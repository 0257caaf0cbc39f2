package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/authcore/internal/db"
	"github.com/templui/authcore/internal/model"
)

type UserRepository interface {
	ByID(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	BySubject(ctx context.Context, provider, subjectID string) (*model.User, error)
	// Create inserts the user and its default preferences in one transaction.
	Create(ctx context.Context, user *model.User) error
	// LinkSubject attaches a federated subject to an active user that has none,
	// in a single conditional write. Otherwise it returns ErrLinkConflict.
	LinkSubject(ctx context.Context, id string, link model.SubjectLink) (*model.User, error)
	// UpdateProfile writes only the non-nil columns of an active user. A missing
	// or inactive user yields ErrUserNotFound.
	UpdateProfile(ctx context.Context, id string, change model.ProfileChange) (*model.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	EnsurePreferences(ctx context.Context, userID string) error
}

const userColumns = `id, email, name, password_hash, origin, provider, subject_id, picture_url,
	email_verified, active, created_at, updated_at`

type userRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db, now: time.Now}
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) BySubject(ctx context.Context, provider, subjectID string) (*model.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE provider = $1 AND subject_id = $2`, provider, subjectID)
}

func (r *userRepository) one(ctx context.Context, query string, args ...any) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	return db.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, user.ID, user.Email, user.Name, user.PasswordHash, user.Origin, user.Provider, user.SubjectID,
			user.PictureURL, user.EmailVerified, user.Active, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert user: %w", translate(err))
		}

		err = insertPreferences(ctx, tx, model.DefaultPreferences(user.ID, user.CreatedAt), false)
		if err != nil {
			return fmt.Errorf("insert preferences: %w", translate(err))
		}
		return nil
	})
}

func (r *userRepository) LinkSubject(ctx context.Context, id string, link model.SubjectLink) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `
		UPDATE users
		SET provider = $1, subject_id = $2, picture_url = COALESCE($3, picture_url),
			email_verified = $4, updated_at = $5
		WHERE id = $6 AND subject_id IS NULL AND active
		RETURNING `+userColumns,
		link.Provider, link.SubjectID, link.PictureURL, link.EmailVerified, r.now().UTC(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkConflict
	}
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, change model.ProfileChange) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `
		UPDATE users
		SET name = COALESCE($1, name), password_hash = COALESCE($2, password_hash), updated_at = $3
		WHERE id = $4 AND active
		RETURNING `+userColumns,
		change.Name, change.PasswordHash, r.now().UTC(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (r *userRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET active = $1, updated_at = $2 WHERE id = $3`,
		active, r.now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *userRepository) EnsurePreferences(ctx context.Context, userID string) error {
	err := insertPreferences(ctx, r.db, model.DefaultPreferences(userID, r.now().UTC()), true)
	if err != nil {
		return translate(err)
	}
	return nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
