// Package errors provides error handling for vigil.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// On top of that it defines the failure taxonomy of a check run. Every error
// that crosses a gateway boundary is marked with exactly one of the sentinels
// below, so callers classify failures with errors.Is instead of string matching:
//
//	if errors.Is(err, errors.ErrQuery) {
//	    // the data store rejected or failed the query
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
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Failure taxonomy of a check run.
var (
	// ErrConfig marks invalid check definitions or configuration. Fatal to the
	// load, never attributed to a single check.
	ErrConfig = New("config error")

	// ErrQuery marks a data store query failure (bad SQL, permissions, transport).
	ErrQuery = New("query error")

	// ErrSchema marks a schema introspection failure, usually a missing table.
	ErrSchema = New("schema error")

	// ErrGeneration marks a transport or authorization failure of the
	// generation service.
	ErrGeneration = New("generation error")

	// ErrGenerationSchema marks structured output that does not conform to the
	// declared schema.
	ErrGenerationSchema = New("generation schema error")

	// ErrDelivery marks a notification that the endpoint did not accept.
	ErrDelivery = New("delivery error")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// NewConfigError creates a config error with a formatted message.
func NewConfigError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConfig)
}

// WrapConfig marks err as a config error and adds context.
func WrapConfig(err error, context string) error {
	return Mark(Wrap(err, context), ErrConfig)
}

// WrapQuery marks err as a query error. The original message is preserved
// verbatim behind the context.
func WrapQuery(err error, context string) error {
	return Mark(Wrap(err, context), ErrQuery)
}

// WrapSchema marks err as a schema error and adds context.
func WrapSchema(err error, context string) error {
	return Mark(Wrap(err, context), ErrSchema)
}

// NewSchemaError creates a schema error with a formatted message.
func NewSchemaError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrSchema)
}

// WrapGeneration marks err as a generation error and adds context.
func WrapGeneration(err error, context string) error {
	return Mark(Wrap(err, context), ErrGeneration)
}

// NewGenerationSchemaError creates a schema conformance error with a formatted message.
func NewGenerationSchemaError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrGenerationSchema)
}

// NewDeliveryError creates a delivery error with a formatted message.
func NewDeliveryError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrDelivery)
}

// WrapDelivery marks err as a delivery error and adds context.
func WrapDelivery(err error, context string) error {
	return Mark(Wrap(err, context), ErrDelivery)
}

// IsConfigError checks if an error is or wraps ErrConfig
func IsConfigError(err error) bool {
	return err != nil && Is(err, ErrConfig)
}

// IsDeliveryError checks if an error is or wraps ErrDelivery
func IsDeliveryError(err error) bool {
	return err != nil && Is(err, ErrDelivery)
}

// Kind returns a short name for the taxonomy sentinel err carries, or
// "internal" when it carries none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrConfig):
		return "config"
	case Is(err, ErrQuery):
		return "query"
	case Is(err, ErrSchema):
		return "schema"
	case Is(err, ErrGenerationSchema):
		return "generation_schema"
	case Is(err, ErrGeneration):
		return "generation"
	case Is(err, ErrDelivery):
		return "delivery"
	case Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
