package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrIncompleteHead indicates the buffer does not yet contain the full
// response head; the caller should read more bytes and retry.
var ErrIncompleteHead = errors.New("httpx: incomplete response head")

// Response is a parsed inbound HTTP/1.1 response head.
type Response struct {
	// Proto is the protocol version from the status line, e.g. "HTTP/1.1".
	Proto string

	// StatusCode is the numeric status, e.g. 200.
	StatusCode int

	// Status is the reason phrase, e.g. "OK". May be empty.
	Status string

	// Header maps lowercased field names to values. Repeated fields are
	// joined with ", ".
	Header map[string]string
}

// ParseResponseHead parses the response head from buf: the status line and
// header fields up to and including the blank line. It returns the parsed
// head together with the remaining bytes, which belong to the body. When the
// blank line has not arrived yet it returns ErrIncompleteHead and the
// original buffer.
func ParseResponseHead(buf []byte) (*Response, []byte, error) {
	head, rest, ok := splitHead(buf)
	if !ok {
		return nil, buf, ErrIncompleteHead
	}

	lines := strings.Split(head, "\r\n")
	if len(lines) == 1 {
		lines = strings.Split(head, "\n")
	}

	resp, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, nil, err
	}

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, nil, fmt.Errorf("httpx: malformed header line %q", line)
		}

		key := strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if prev, ok := resp.Header[key]; ok {
			value = prev + ", " + value
		}
		resp.Header[key] = value
	}

	return resp, rest, nil
}

// Get returns the value of the named header field, case-insensitively.
func (r *Response) Get(key string) string {
	return r.Header[strings.ToLower(key)]
}

// Chunked reports whether the body uses chunked transfer coding.
func (r *Response) Chunked() bool {
	return strings.Contains(strings.ToLower(r.Get("Transfer-Encoding")), "chunked")
}

// ContentType returns the media type of the body without parameters.
func (r *Response) ContentType() string {
	ct := r.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// IsEventStream reports whether the body is a text/event-stream.
func (r *Response) IsEventStream() bool {
	return strings.EqualFold(r.ContentType(), "text/event-stream")
}

// splitHead cuts buf at the head/body boundary blank line.
func splitHead(buf []byte) (head string, rest []byte, ok bool) {
	if i := bytes.Index(buf, []byte("\r\n\r\n")); i >= 0 {
		return string(buf[:i]), buf[i+4:], true
	}
	if i := bytes.Index(buf, []byte("\n\n")); i >= 0 {
		return string(buf[:i]), buf[i+2:], true
	}
	return "", nil, false
}

func parseStatusLine(line string) (*Response, error) {
	line = strings.TrimRight(line, "\r")

	proto, after, found := strings.Cut(line, " ")
	if !found || !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("httpx: malformed status line %q", line)
	}

	codeStr, reason, _ := strings.Cut(after, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return nil, fmt.Errorf("httpx: malformed status code in %q", line)
	}

	return &Response{
		Proto:      proto,
		StatusCode: code,
		Status:     reason,
		Header:     map[string]string{},
	}, nil
}
