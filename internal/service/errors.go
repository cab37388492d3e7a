package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotOwner     = errors.New("not allowed for this user")
)

// invalid marks a validation failure so handlers can answer 400 with its message.
func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
