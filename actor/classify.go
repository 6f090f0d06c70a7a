package actor

import "strings"

// classifyFailure decides whether a user-code failure during RUNNING is
// recoverable (ERROR, a structured/known failure kind) or not (CRITICAL,
// unknown or crashing), per spec.md §4.E's failure semantics. Ported from
// the pattern-matching idiom in the teacher's `pulse/async/error.go`'s
// ClassifyError, simplified to the boolean this state machine needs
// rather than a full ErrorCode taxonomy (that richer classification
// belongs to the terminal event's serialized cause, not the transition
// decision).
func classifyFailure(err error) (recoverable bool) {
	if err == nil {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "validation"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "expand"),
		strings.Contains(msg, "shrink"):
		return true
	default:
		return false
	}
}
