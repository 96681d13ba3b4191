package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings.
const (
	// Identity and context
	FieldRunID = "run_id"
	FieldCheck = "check"

	// Components
	FieldComponent = "component"
	FieldProvider  = "provider"
	FieldModel     = "model"
	FieldDriver    = "driver"

	// Operations
	FieldOperation = "operation"
	FieldSQL       = "sql"
	FieldTable     = "table"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts and sizes
	FieldCount      = "count"
	FieldRowCount   = "row_count"
	FieldTotalCount = "total_count"

	// Status
	FieldStatus   = "status"
	FieldState    = "state"
	FieldCategory = "category"
	FieldSeverity = "severity"

	// Files and paths
	FieldFile = "file"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	checkKey     contextKey = "logger_check"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithCheck adds the current check name to the context for logging
func WithCheck(ctx context.Context, check string) context.Context {
	return context.WithValue(ctx, checkKey, check)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// RunIDFromContext returns the run ID carried by ctx, or ""
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey).(string)
	return runID
}

// CheckFromContext returns the check name carried by ctx, or ""
func CheckFromContext(ctx context.Context) string {
	check, _ := ctx.Value(checkKey).(string)
	return check
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if check, ok := ctx.Value(checkKey).(string); ok && check != "" {
		fields = append(fields, FieldCheck, check)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base with the fields carried by ctx attached.
// A nil base falls back to the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Runner struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func New() *Runner {
//	    return &Runner{logger: logger.ComponentLogger("runner")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
