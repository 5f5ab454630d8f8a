package sse

import (
	"bytes"
	"strconv"
	"strings"
)

// MarshalText serializes the event into its wire form: the "event:" line if
// a type is set, one ":" line per comment, one "data:" line per data line,
// then "id:" and "retry:" if set, followed by the blank-line terminator.
// Output always uses "\n", and absent fields are never emitted.
//
// Serialization fails with a *NewlineInFieldError if any field value itself
// contains a line-break character, since that would corrupt the framing.
// The check runs per field so the error names the offending value.
func (e *Event) MarshalText() ([]byte, error) {
	var b bytes.Buffer

	if e.Type != "" {
		if err := checkField("event", e.Type); err != nil {
			return nil, err
		}
		b.WriteString("event: ")
		b.WriteString(e.Type)
		b.WriteByte('\n')
	}

	for _, comment := range e.Comments {
		if err := checkField("comment", comment); err != nil {
			return nil, err
		}
		b.WriteString(": ")
		b.WriteString(comment)
		b.WriteByte('\n')
	}

	for _, line := range e.Lines {
		if err := checkField("data", line); err != nil {
			return nil, err
		}
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if e.ID != "" {
		if err := checkField("id", e.ID); err != nil {
			return nil, err
		}
		b.WriteString("id: ")
		b.WriteString(e.ID)
		b.WriteByte('\n')
	}

	if e.Retry != nil {
		b.WriteString("retry: ")
		b.WriteString(strconv.Itoa(*e.Retry))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}

func checkField(field, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return &NewlineInFieldError{Field: field, Value: value}
	}
	return nil
}
