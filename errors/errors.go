// Package errors provides error handling for the rekuest-next agent runtime.
//
// It re-exports github.com/cockroachdb/errors, giving every package in this
// module:
//   - Stack traces for debugging
//   - Error wrapping and context (hints, details)
//   - PII-safe error formatting
//   - Network-portable encode/decode, for errors that cross the websocket
//     control channel as part of an assignment's terminal event
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
//	// Add hints for operators
//	return errors.WithHint(err, "try increasing the timeout")
//
//	// Check errors
//	if errors.Is(err, ErrNotFound) {
//	    // handle not found
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
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSafeDetails    = crdb.WithSafeDetails
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Advanced features
var (
	Handled                 = crdb.Handled
	HandledWithMessage      = crdb.HandledWithMessage
	WithDomain              = crdb.WithDomain
	GetDomain               = crdb.GetDomain
	WithContextTags         = crdb.WithContextTags
	EncodeError             = crdb.EncodeError
	DecodeError             = crdb.DecodeError
	GetReportableStackTrace = crdb.GetReportableStackTrace
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Assertions and panics
var (
	AssertionFailedf                = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
)

// Domains naming the error taxonomy kinds. A domain attached with
// crdb.WithDomain lets a handler recover which taxonomy kind an error
// belongs to without string-matching its message; no package in this
// module attaches them, and the Actor's terminal-event classification
// (actor.classifyFailure) matches on error messages instead.
var (
	DomainDefinition       = crdb.NamedDomain("definition")
	DomainStructureRegistry = crdb.NamedDomain("structure_registry")
	DomainShrinking        = crdb.NamedDomain("shrinking")
	DomainExpanding        = crdb.NamedDomain("expanding")
	DomainLockViolation    = crdb.NamedDomain("lock_violation")
	DomainAssignment       = crdb.NamedDomain("assignment")
	DomainTransport        = crdb.NamedDomain("transport")
	DomainTimeout          = crdb.NamedDomain("timeout")
)
