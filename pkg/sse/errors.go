package sse

import "fmt"

// MalformedLineError reports a non-empty line with no field/value separator.
// The parse that produced it consumed nothing and yielded no partial event.
type MalformedLineError struct {
	// Line is the offending raw line, without its terminator.
	Line string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("sse: malformed line %q", e.Line)
}

// InvalidFieldNameError reports a field name outside the protocol's closed
// set (event, data, id, retry, or the empty name for comments). Field names
// are case-sensitive.
type InvalidFieldNameError struct {
	// Field is the offending field name.
	Field string
}

func (e *InvalidFieldNameError) Error() string {
	return fmt.Sprintf("sse: invalid field name %q", e.Field)
}

// InvalidRetryError reports a "retry:" value that is not a base-10
// non-negative integer.
type InvalidRetryError struct {
	// Value is the raw retry value as it appeared on the wire.
	Value string
}

func (e *InvalidRetryError) Error() string {
	return fmt.Sprintf("sse: invalid retry value %q", e.Value)
}

// NewlineInFieldError reports an attempt to serialize an event whose field
// value contains a line-break character. This is a programming error in the
// caller, not a recoverable protocol condition.
type NewlineInFieldError struct {
	// Field is the wire field the value belongs to ("event", "data", "id",
	// or "comment").
	Field string

	// Value is the offending value.
	Value string
}

func (e *NewlineInFieldError) Error() string {
	return fmt.Sprintf("sse: %s value %q contains a line break", e.Field, e.Value)
}
