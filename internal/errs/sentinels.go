// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Categories. Transports map these to status codes; anything that matches none
// of them is treated as a store failure.
var (
	// ErrValidation indicates missing or malformed input. Never reaches the store.
	ErrValidation = errors.New("validation")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates the entity is not in the state the operation requires.
	ErrConflict = errors.New("conflict")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Refinements. Each one matches its category with errors.Is.
var (
	ErrInvalidPayload = fmt.Errorf("%w: empty encrypted payload", ErrValidation)

	ErrDuplicateUsername = fmt.Errorf("%w: username taken", ErrAlreadyExists)
	ErrDuplicateRequest  = fmt.Errorf("%w: chat request already pending or accepted", ErrAlreadyExists)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrTokenMissing       = fmt.Errorf("%w: token is missing", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token has expired", ErrUnauthorized)
	ErrTokenInvalid       = fmt.Errorf("%w: token is invalid", ErrUnauthorized)

	ErrNoPendingRequest = fmt.Errorf("%w: no pending request found from that user", ErrConflict)
)

// Validation builds an ErrValidation with a field-specific detail.
func Validation(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}

var categories = []error{ErrValidation, ErrNotFound, ErrAlreadyExists, ErrUnauthorized, ErrConflict, ErrRateLimited}

// Category returns the category sentinel err belongs to, or nil for store failures.
func Category(err error) error {
	for _, c := range categories {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}

// Detail returns the user-facing text of a categorized error without its category prefix.
func Detail(err error) string {
	c := Category(err)
	if c == nil {
		return "internal error"
	}
	s := err.Error()
	if d := strings.TrimPrefix(s, c.Error()+": "); d != "" {
		return d
	}
	return s
}
