package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrProfileNotFound         = errors.New("profile not found")
	ErrSourceNotFound          = errors.New("source profile not found")
	ErrDuplicateSlug           = errors.New("slug already in use")
	ErrDefaultProfileProtected = errors.New("the default profile cannot be deleted")
	ErrProgressDisabled        = errors.New("progress is not tracked for the default profile")
	ErrForbidden               = errors.New("forbidden")
	ErrUnauthorized            = errors.New("authentication required")
	ErrBadRequest              = errors.New("bad request")
	ErrUserNotFound            = errors.New("user not found")
)

// ValidationError carries user-correctable field errors.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
