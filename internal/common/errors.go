// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"math"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Pipeline errors.
	ErrUnknownFormat = errors.New("unrecognized file format")
	ErrEmptyFile     = errors.New("no transactions found in file")

	// Configuration errors.
	ErrMissingCatalog   = errors.New("missing catalog file")
	ErrMissingLocations = errors.New("missing location directory file")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
