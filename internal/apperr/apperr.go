// Package apperr defines the error kinds the HTTP layer maps to status codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing sprint, user or tracker binding.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied marks a role check failure.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnavailable marks a tracker or LLM transport/contract failure.
	// Callers may retry; nothing has been persisted when it is returned.
	ErrUnavailable = errors.New("service unavailable")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// PermissionDeniedf wraps ErrPermissionDenied with a formatted message.
func PermissionDeniedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrPermissionDenied)...)
}

// Unavailablef wraps ErrUnavailable with a formatted message.
func Unavailablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnavailable)...)
}
