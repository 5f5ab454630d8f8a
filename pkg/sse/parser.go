package sse

import (
	"bytes"
	"strconv"
	"strings"
)

// Parse decodes at most one event block (terminated by a blank line) from
// buf. Any of "\n", "\r\n", or "\r" is accepted as a line terminator, and
// the buffer is not required to use one variant consistently.
//
// Parse returns the decoded event together with the unconsumed remainder of
// buf. When buf holds no complete block yet, Parse returns (nil, buf, nil)
// with the original input untouched, so the caller can append more bytes and
// re-parse without losing anything. On a protocol violation Parse returns a
// *MalformedLineError, *InvalidFieldNameError, or *InvalidRetryError and no
// partial event.
//
// Newline bytes at the very start of buf are discarded before parsing. This
// tolerates a "\r\n" delimiter split across two network reads: the "\r"
// terminates a line at the end of one read, and the orphaned "\n" arrives at
// the start of the next. Only newline bytes are discarded, never other
// whitespace.
func Parse(buf []byte) (*Event, []byte, error) {
	cur := trimLeadingNewlines(buf)

	ev := &Event{}
	for {
		line, after, ok := nextLine(cur)
		if !ok {
			// No complete line left. Hand back the original input,
			// not the partially consumed remainder, so re-parsing
			// is idempotent until more bytes arrive.
			return nil, buf, nil
		}
		cur = after

		if line == "" {
			return ev, cur, nil
		}

		if err := ev.consumeLine(line); err != nil {
			return nil, nil, err
		}
	}
}

// ParseAll decodes every complete event block in buf, returning the events
// in arrival order together with the unconsumed remainder. A failure on any
// block fails the whole call: no events are returned, including ones that
// decoded cleanly before the bad block.
func ParseAll(buf []byte) ([]*Event, []byte, error) {
	var events []*Event

	rest := buf
	for {
		ev, after, err := Parse(rest)
		if err != nil {
			return nil, nil, err
		}
		if ev == nil {
			return events, after, nil
		}

		events = append(events, ev)
		rest = after
	}
}

// consumeLine folds one non-empty field line into the event.
func (e *Event) consumeLine(line string) error {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return &MalformedLineError{Line: line}
	}

	// The separator is ":" with one optional following space. Exactly one
	// space is stripped so values keep any further leading whitespace.
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "":
		e.Comments = append(e.Comments, value)
	case "event":
		// Last write wins for repeated event/id/retry fields.
		e.Type = value
	case "data":
		e.Lines = append(e.Lines, value)
	case "id":
		e.ID = value
	case "retry":
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 {
			return &InvalidRetryError{Value: value}
		}
		e.Retry = &ms
	default:
		return &InvalidFieldNameError{Field: name}
	}

	return nil
}

// nextLine pops the next complete line from buf: the bytes up to the first
// newline token, excluding the token itself. A "\r" at the very end of buf
// counts as a complete terminator; if it was the first half of a split
// "\r\n", the orphaned "\n" is discarded by the next Parse call.
func nextLine(buf []byte) (line string, rest []byte, ok bool) {
	i := bytes.IndexAny(buf, "\r\n")
	if i < 0 {
		return "", nil, false
	}

	line = string(buf[:i])
	if buf[i] == '\r' && i+1 < len(buf) && buf[i+1] == '\n' {
		return line, buf[i+2:], true
	}
	return line, buf[i+1:], true
}

func trimLeadingNewlines(buf []byte) []byte {
	i := 0
	for i < len(buf) && (buf[i] == '\r' || buf[i] == '\n') {
		i++
	}
	return buf[i:]
}
