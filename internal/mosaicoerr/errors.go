// Package mosaicoerr defines the closed set of client-facing error codes
// the core propagates, and a wrapper that carries a code alongside the
// underlying cause. Lower-level packages (metadata, objectstore, chunkio,
// queryfilter) return plain wrapped errors (errors.New + fmt.Errorf %w,
// the teacher's style); the facades, planner and RPC handlers attach a
// Code, and the RPC layer maps codes to HTTP statuses, treating an
// uncoded error as internal.
package mosaicoerr

import "fmt"

// Code is one of the closed taxonomy of client-facing error conditions.
type Code string

const (
	NotFound              Code = "not_found"
	AlreadyExists         Code = "already_exists"
	SequenceLocked        Code = "sequence_locked"
	TopicLocked           Code = "topic_locked"
	TopicUnlocked         Code = "topic_unlocked"
	Unauthorized          Code = "unauthorized"
	BadKey                Code = "bad_key"
	BadTicket             Code = "bad_ticket"
	MissingTimestamp      Code = "missing_timestamp"
	WrongTimestampType    Code = "wrong_timestamp_type"
	UnsupportedDescriptor Code = "unsupported_descriptor"
	UnsupportedOperation  Code = "unsupported_operation"
	EmptyRange            Code = "empty_range"
	BadField              Code = "bad_field"
	StreamError           Code = "stream_error"
	Internal              Code = "internal"
)

// Error pairs a taxonomy code with the wrapped cause.
type Error struct {
	Code  Code
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause under code. cause may be nil.
func New(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

// Newf wraps a formatted error under code.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Cause: fmt.Errorf(format, args...)}
}
