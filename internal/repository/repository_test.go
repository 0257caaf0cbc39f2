package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/authcore/internal/db/dbtest"
	"github.com/templui/authcore/internal/model"
)

func ptr(s string) *string { return &s }

func localUser(email string) *model.User {
	return &model.User{
		Email:        email,
		Name:         "Ada",
		PasswordHash: ptr("$2a$04$hash"),
		Origin:       model.OriginLocal,
		Active:       true,
	}
}

func TestUserRepositoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	users := NewUserRepository(database)
	prefs := NewPreferencesRepository(database)

	user := localUser("ada@example.com")
	require.NoError(t, users.Create(ctx, user))
	require.NotEmpty(t, user.ID)

	byID, err := users.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
	assert.Equal(t, model.OriginLocal, byID.Origin)
	assert.True(t, byID.Active)
	assert.Nil(t, byID.SubjectID)
	require.NotNil(t, byID.PasswordHash)
	assert.Equal(t, "$2a$04$hash", *byID.PasswordHash)

	byEmail, err := users.ByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	p, err := prefs.ByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCurrency, p.Currency)
	assert.Equal(t, model.DefaultLanguage, p.Language)
	assert.True(t, p.NotificationsEnabled)
	assert.True(t, p.EmailNotifications)
}

func TestUserRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.Open(t))

	_, err := users.ByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.ByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.BySubject(ctx, model.ProviderGoogle, "sub")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.UpdateProfile(ctx, "missing", model.ProfileChange{Name: ptr("X")})
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.LinkSubject(ctx, "missing", model.SubjectLink{Provider: model.ProviderGoogle, SubjectID: "sub"})
	assert.ErrorIs(t, err, ErrLinkConflict)
	assert.ErrorIs(t, users.SetActive(ctx, "missing", false), ErrUserNotFound)
}

func TestUserRepositoryDuplicateEmailRollsBack(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	users := NewUserRepository(database)

	require.NoError(t, users.Create(ctx, localUser("dup@example.com")))

	second := localUser("dup@example.com")
	err := users.Create(ctx, second)
	assert.ErrorIs(t, err, ErrUniqueViolation)

	var count int
	require.NoError(t, database.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_preferences`))
	assert.Equal(t, 1, count)
}

func TestUserRepositoryFederatedSubject(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.Open(t))

	user := &model.User{
		Email:         "fed@example.com",
		Name:          "Fed",
		Origin:        model.OriginFederated,
		Provider:      ptr(model.ProviderGoogle),
		SubjectID:     ptr("sub-1"),
		PictureURL:    ptr("https://example.com/p.png"),
		EmailVerified: true,
		Active:        true,
	}
	require.NoError(t, users.Create(ctx, user))

	found, err := users.BySubject(ctx, model.ProviderGoogle, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.False(t, found.HasPassword())
	assert.Equal(t, []string{model.ProviderGoogle}, found.LinkedProviders())

	other := &model.User{
		Email:     "other@example.com",
		Name:      "Other",
		Origin:    model.OriginFederated,
		Provider:  ptr(model.ProviderGoogle),
		SubjectID: ptr("sub-1"),
		Active:    true,
	}
	assert.ErrorIs(t, users.Create(ctx, other), ErrUniqueViolation)
}

func TestUserRepositoryLinkSubject(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.Open(t))

	user := localUser("merge@example.com")
	user.PictureURL = ptr("https://example.com/old.png")
	require.NoError(t, users.Create(ctx, user))

	linked, err := users.LinkSubject(ctx, user.ID, model.SubjectLink{
		Provider:      model.ProviderGoogle,
		SubjectID:     "sub-9",
		EmailVerified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, linked.ID)
	assert.Equal(t, model.OriginLocal, linked.Origin)
	assert.True(t, linked.EmailVerified)
	assert.Equal(t, "Ada", linked.Name)
	require.NotNil(t, linked.PasswordHash)
	assert.Equal(t, "$2a$04$hash", *linked.PasswordHash)
	assert.Equal(t, "https://example.com/old.png", *linked.PictureURL, "nil picture keeps the stored one")
	assert.Equal(t, []string{"email", model.ProviderGoogle}, linked.LinkedProviders())

	found, err := users.BySubject(ctx, model.ProviderGoogle, "sub-9")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	// A second link never rebinds the account
	_, err = users.LinkSubject(ctx, user.ID, model.SubjectLink{Provider: model.ProviderGoogle, SubjectID: "sub-10"})
	assert.ErrorIs(t, err, ErrLinkConflict)

	found, err = users.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "sub-9", *found.SubjectID)
}

func TestUserRepositoryLinkSubjectSkipsInactive(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.Open(t))

	user := localUser("off@example.com")
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, users.SetActive(ctx, user.ID, false))

	_, err := users.LinkSubject(ctx, user.ID, model.SubjectLink{Provider: model.ProviderGoogle, SubjectID: "sub-1"})
	assert.ErrorIs(t, err, ErrLinkConflict)

	found, err := users.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)
	assert.Nil(t, found.SubjectID)
}

func TestUserRepositoryUpdateProfileAndSetActive(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.Open(t))

	user := localUser("profile@example.com")
	require.NoError(t, users.Create(ctx, user))

	updated, err := users.UpdateProfile(ctx, user.ID, model.ProfileChange{Name: ptr("Ada Lovelace")})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "$2a$04$hash", *updated.PasswordHash, "unset columns are kept")

	updated, err = users.UpdateProfile(ctx, user.ID, model.ProfileChange{PasswordHash: ptr("$2a$04$other")})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "$2a$04$other", *updated.PasswordHash)

	require.NoError(t, users.SetActive(ctx, user.ID, false))
	found, err := users.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)

	_, err = users.UpdateProfile(ctx, user.ID, model.ProfileChange{Name: ptr("Ghost")})
	assert.ErrorIs(t, err, ErrUserNotFound)

	found, err = users.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found.Active, "profile writes never touch the active flag")
	assert.Equal(t, "Ada Lovelace", found.Name)
}

func TestEnsurePreferencesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	users := NewUserRepository(database)
	prefs := NewPreferencesRepository(database)

	user := localUser("prefs@example.com")
	require.NoError(t, users.Create(ctx, user))
	_, err := database.ExecContext(ctx, `DELETE FROM user_preferences WHERE user_id = $1`, user.ID)
	require.NoError(t, err)

	_, err = prefs.ByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrPreferencesNotFound)

	require.NoError(t, users.EnsurePreferences(ctx, user.ID))
	require.NoError(t, users.EnsurePreferences(ctx, user.ID))

	var count int
	require.NoError(t, database.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_preferences WHERE user_id = $1`, user.ID))
	assert.Equal(t, 1, count)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrUniqueViolation, true},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"message", errors.New("UNIQUE constraint failed: users.email"), true},
		{"other", errors.New("disk I/O error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
