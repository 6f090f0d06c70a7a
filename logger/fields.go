package logger

import "context"

// Standard field names for consistent structured logging across the agent
// runtime. Use these constants instead of raw strings so logs stay
// queryable and grep-stable across packages.
const (
	// Identity
	FieldAssignmentID    = "assignment_id"
	FieldImplementationID = "implementation_id"
	FieldInstanceID      = "instance_id"
	FieldStateName       = "state_name"
	FieldActorID         = "actor_id"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldHandler   = "handler"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorCode = "error_code"

	// Counts and sizes
	FieldCount     = "count"
	FieldRevision  = "revision"
	FieldPatches   = "patches"

	// Status
	FieldStatus = "status"
	FieldState  = "state"

	// Network
	FieldAddress = "address"
)

type contextKey string

const (
	assignmentIDKey contextKey = "logger_assignment_id"
	componentKey    contextKey = "logger_component"
)

// WithAssignmentID attaches an assignment id to the context for logging.
func WithAssignmentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, assignmentIDKey, id)
}

// AssignmentIDFromContext retrieves the assignment id previously attached
// with WithAssignmentID, if any.
func AssignmentIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(assignmentIDKey).(string)
	return id, ok
}

// WithComponent attaches a component name to the context for logging.
func WithComponent(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, componentKey, name)
}

// ComponentFromContext retrieves the component name previously attached
// with WithComponent, if any.
func ComponentFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(componentKey).(string)
	return name, ok
}
