package client

import (
	"time"

	"github.com/pushpipe/pushpipe/pkg/httpx"
	"github.com/pushpipe/pushpipe/pkg/transport"
)

// Target identifies the peer endpoint of a connect decision.
type Target struct {
	Host   string
	Port   int
	Scheme transport.Scheme
}

type decisionKind int

const (
	decideIdle decisionKind = iota
	decideConnect
	decideStop
)

// Decision is the closed set of choices a Handler returns at every lifecycle
// transition: open a connection, leave the session as it is, or stop it.
// Reconnect policy (backoff, attempt limits, giving up) lives entirely in
// the Handler; the session itself never retries.
type Decision struct {
	kind   decisionKind
	target Target
	req    *httpx.Request
	delay  time.Duration
	reason error
}

// Connect opens a connection to target and sends the given request head.
// If the session already holds a connection it is torn down first.
func Connect(target Target, req *httpx.Request) Decision {
	return Decision{kind: decideConnect, target: target, req: req}
}

// ConnectAfter is Connect preceded by a delay, for backoff between attempts.
// Signals arriving during the delay are still forwarded to the handler.
func ConnectAfter(target Target, req *httpx.Request, delay time.Duration) Decision {
	return Decision{kind: decideConnect, target: target, req: req, delay: delay}
}

// Idle leaves the session in its current state: disconnected sessions wait
// for signals, streaming sessions keep streaming. Idle is the zero Decision.
func Idle() Decision {
	return Decision{kind: decideIdle}
}

// Stop terminates the session with the given reason. Run returns the reason
// and no further handler callbacks fire. A nil reason is an orderly stop.
func Stop(reason error) Decision {
	return Decision{kind: decideStop, reason: reason}
}
