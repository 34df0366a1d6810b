package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("booking conflict")
	ErrSessionExpired  = errors.New("booking session expired, please start over")
	ErrExternalService = errors.New("payment provider unavailable")
)

// ValidationError reports bad input on a single field. Nothing was mutated.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
