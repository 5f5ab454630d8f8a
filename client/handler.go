package client

import (
	"github.com/pushpipe/pushpipe/pkg/httpx"
	"github.com/pushpipe/pushpipe/pkg/sse"
)

// Handler supplies the policy half of a session: it decides when to connect,
// reconnect, and stop, and consumes decoded events. All hooks run on the
// session's single goroutine and complete before the next notification is
// handled, so a Handler needs no internal locking for state it mutates from
// its own callbacks.
type Handler interface {
	// Init runs once when the session starts. Return Connect to dial
	// immediately or Idle to wait for a signal.
	Init() Decision

	// OnConnected fires after the response head confirmed a chunked
	// event-stream body, before any events are delivered.
	OnConnected(resp *httpx.Response) Decision

	// OnConnectFailed fires when a connect attempt did not reach the
	// streaming state: dial error, send error, head timeout, or a head
	// that is not a chunked event-stream.
	OnConnectFailed(reason error) Decision

	// OnDisconnected fires when an established stream ends: peer close,
	// transport error, or a fatal protocol violation. The reason for a
	// protocol violation is the codec or dechunker error; an orderly
	// end-of-stream is ErrStreamEnded.
	OnDisconnected(reason error) Decision

	// OnEvent delivers one decoded event. Events arrive in stream order,
	// one at a time.
	OnEvent(ev *sse.Event)

	// OnSignal fires for values injected via Session.Signal, in any
	// state. Return Idle to carry on unchanged.
	OnSignal(sig any) Decision
}
