// Package errors provides error handling for seamline.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNoCodeMatch) {
//	    // handle skip condition
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Mark      = crdb.Mark
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll

	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors used across seamline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested row or resource does not exist
	ErrNotFound = New("not found")

	// ErrMalformedCursor indicates the persisted reconciliation cursor could
	// not be parsed under either accepted timestamp format. Fatal at startup:
	// proceeding would risk mis-ordered reconciliation.
	ErrMalformedCursor = New("malformed reconciliation cursor")

	// ErrNoCodeMatch indicates no scan code was found inside a trigger's
	// window. A recognized skip condition, not a failure.
	ErrNoCodeMatch = New("no scan code in trigger window")

	// ErrWriteFailed indicates a combined-record batch could not be persisted.
	// The affected trigger is retried on a later cycle.
	ErrWriteFailed = New("combined record write failed")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsNoCodeMatch checks if an error is or wraps ErrNoCodeMatch.
func IsNoCodeMatch(err error) bool {
	return err != nil && Is(err, ErrNoCodeMatch)
}

// IsMalformedCursor checks if an error is or wraps ErrMalformedCursor.
func IsMalformedCursor(err error) bool {
	return err != nil && Is(err, ErrMalformedCursor)
}
