package model

import (
	"time"
)

// Origin records which credential path created an identity.
type Origin string

const (
	OriginLocal     Origin = "local"
	OriginFederated Origin = "federated"
)

const ProviderGoogle = "google"

type User struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	PasswordHash  *string   `db:"password_hash" json:"-"` // Nullable for federated-only users
	Origin        Origin    `db:"origin" json:"auth_provider"`
	Provider      *string   `db:"provider" json:"-"`
	SubjectID     *string   `db:"subject_id" json:"-"`
	PictureURL    *string   `db:"picture_url" json:"profile_picture"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	Active        bool      `db:"active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsLinked reports whether a federated subject is attached to the user.
func (u *User) IsLinked() bool {
	return u.SubjectID != nil && *u.SubjectID != ""
}

// LinkedProviders lists the sign-in methods available to the user.
func (u *User) LinkedProviders() []string {
	var providers []string
	if u.HasPassword() {
		providers = append(providers, "email")
	}
	if u.IsLinked() && u.Provider != nil {
		providers = append(providers, *u.Provider)
	}
	return providers
}

// SubjectLink is the federated data a merge attaches to an existing user.
type SubjectLink struct {
	Provider      string
	SubjectID     string
	PictureURL    *string // nil keeps the stored picture
	EmailVerified bool
}

// ProfileChange lists the profile columns to overwrite; nil fields are kept.
type ProfileChange struct {
	Name         *string
	PasswordHash *string
}
