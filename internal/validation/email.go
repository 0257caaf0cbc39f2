package validation

import (
	"errors"
	"net/mail"
)

const EmailMaxLength = 254

// ValidateEmail validates email format and length
// Uses Go's built-in net/mail parser which follows RFC 5322
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}

	// RFC 5321: total max 254 characters with @
	if len(email) > EmailMaxLength {
		return errors.New("email address is too long (max 254 characters)")
	}

	// Bare addresses only, no display names
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address format")
	}

	return nil
}
