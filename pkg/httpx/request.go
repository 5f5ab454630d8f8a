// Package httpx provides the minimal HTTP/1.1 pieces the streaming client
// rides on: outbound request-head serialization, inbound response-head
// parsing, and incremental chunked transfer-coding decode. It is not a
// general HTTP implementation; it covers exactly what a long-lived
// text/event-stream subscription needs.
package httpx

import (
	"bytes"
	"sort"
)

// Request is an outbound HTTP/1.1 request head for opening an event-stream
// subscription. The request carries no body.
type Request struct {
	// Method is the HTTP method, normally GET.
	Method string

	// Path is the request target, e.g. "/events".
	Path string

	// Host is the value of the Host header.
	Host string

	// Header holds additional header fields. Keys are sent as given.
	Header map[string]string
}

// NewRequest builds a GET request for an event-stream subscription with the
// headers a streaming consumer is expected to send.
func NewRequest(host, path string) *Request {
	return &Request{
		Method: "GET",
		Path:   path,
		Host:   host,
		Header: map[string]string{
			"Accept":        "text/event-stream",
			"Cache-Control": "no-cache",
			"Connection":    "keep-alive",
		},
	}
}

// Set adds or replaces a header field.
func (r *Request) Set(key, value string) {
	if r.Header == nil {
		r.Header = map[string]string{}
	}
	r.Header[key] = value
}

// SetLastEventID asks the server to resume delivery after the given event ID.
func (r *Request) SetLastEventID(id string) {
	r.Set("Last-Event-ID", id)
}

// Marshal serializes the request head, including the terminating blank line.
// Headers are emitted in sorted order so the output is deterministic.
func (r *Request) Marshal() []byte {
	var b bytes.Buffer

	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(r.Path)
	b.WriteString(" HTTP/1.1\r\n")

	b.WriteString("Host: ")
	b.WriteString(r.Host)
	b.WriteString("\r\n")

	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(r.Header[k])
		b.WriteString("\r\n")
	}

	b.WriteString("\r\n")

	return b.Bytes()
}
