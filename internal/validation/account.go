package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxEmailLength           = 254
	MinDisplayNameLength     = 2
	MaxDisplayNameLength     = 50
	MinPasswordLength        = 12
	MaxPasswordBytes         = 72 // bcrypt ignores everything past this
	minDistinctPasswordRunes = 5
)

var (
	ErrEmailRequired = errors.New("email address is required")
	ErrEmailInvalid  = errors.New("enter a plain address like name@example.com")

	ErrDisplayNameRequired = errors.New("display name is required")
	ErrDisplayNameReserved = errors.New("that display name is reserved")
	ErrDisplayNameInvalid  = errors.New("display name must contain a letter or digit and no control characters")

	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	ErrPasswordWeak     = errors.New("password is too easy to guess, please choose a stronger one")
)

// Names that would let a seller pass for the marketplace itself.
var reservedDisplayNames = map[string]bool{
	"cardshow":      true,
	"cardshow team": true,
	"admin":         true,
	"administrator": true,
	"moderator":     true,
	"support":       true,
	"staff":         true,
	"system":        true,
}

var weakPasswordFragments = []string{
	"password", "123456", "qwerty", "letmein", "iloveyou", "cardshow",
}

// ValidateEmail accepts a bare address only; "Ada <ada@example.com>" parses
// under RFC 5322 but is not something we can send receipts to.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email address is too long (max %d characters)", MaxEmailLength)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateDisplayName checks the public name shown on a creator's cards and
// listings.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrDisplayNameRequired
	}

	n := utf8.RuneCountInString(trimmed)
	if n < MinDisplayNameLength || n > MaxDisplayNameLength {
		return fmt.Errorf("display name must be %d to %d characters", MinDisplayNameLength, MaxDisplayNameLength)
	}

	alnum := false
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return ErrDisplayNameInvalid
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum = true
		}
	}
	if !alnum {
		return ErrDisplayNameInvalid
	}

	if reservedDisplayNames[strings.Join(strings.Fields(strings.ToLower(trimmed)), " ")] {
		return ErrDisplayNameReserved
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}

	lower := strings.ToLower(password)
	for _, fragment := range weakPasswordFragments {
		if strings.Contains(lower, fragment) {
			return ErrPasswordWeak
		}
	}

	// "aaaaaaaaaaaa", "abababababab"
	distinct := make(map[rune]struct{})
	for _, r := range lower {
		distinct[r] = struct{}{}
	}
	if len(distinct) < minDistinctPasswordRunes {
		return ErrPasswordWeak
	}
	return nil
}
