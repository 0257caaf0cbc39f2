package validation

import (
	"errors"
	"strings"
)

const (
	PasswordMinLength = 8
	// PasswordMaxLength is the bcrypt input limit in bytes.
	PasswordMaxLength = 72
)

// ValidatePassword validates password length and rejects trivially common choices
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return errors.New("password must be at least 8 characters")
	}

	// bcrypt silently truncates passwords longer than 72 bytes, which is a security risk
	if len(password) > PasswordMaxLength {
		return errors.New("password must not exceed 72 bytes")
	}

	if strings.TrimSpace(password) == "" {
		return errors.New("password must not be blank")
	}

	lower := strings.ToLower(password)
	commonPasswords := []string{
		"password", "12345678", "123456789", "qwertyui", "11111111", "iloveyou",
	}

	for _, common := range commonPasswords {
		if lower == common {
			return errors.New("password is too common, please choose a stronger one")
		}
	}

	return nil
}
