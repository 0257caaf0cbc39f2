package model

import "time"

const (
	DefaultCurrency = "USD"
	DefaultLanguage = "en"
)

type Preferences struct {
	ID                   string    `db:"id" json:"-"`
	UserID               string    `db:"user_id" json:"user_id"`
	Currency             string    `db:"currency" json:"currency"`
	Language             string    `db:"language" json:"language"`
	NotificationsEnabled bool      `db:"notifications_enabled" json:"notifications_enabled"`
	EmailNotifications   bool      `db:"email_notifications" json:"email_notifications"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultPreferences returns the record created alongside every new user.
func DefaultPreferences(userID string, now time.Time) *Preferences {
	return &Preferences{
		UserID:               userID,
		Currency:             DefaultCurrency,
		Language:             DefaultLanguage,
		NotificationsEnabled: true,
		EmailNotifications:   true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
