// Package transport abstracts the byte-oriented socket a streaming session
// runs over: plain TCP or TLS, exposed through a bounded send/receive pair
// for the connection handshake and a one-shot "arm, then notify" read model
// for the streaming body. The session never blocks indefinitely waiting for
// data; absence of data simply means no notification fires.
package transport

import "time"

// Scheme selects the concrete transport for a connection.
type Scheme string

const (
	// SchemePlain is an unencrypted TCP connection.
	SchemePlain Scheme = "plain"

	// SchemeEncrypted is a TLS connection.
	SchemeEncrypted Scheme = "encrypted"
)

// Notification is the outcome of one armed read: the bytes that became
// available, or the error that ended the read (io.EOF on orderly peer
// close). A notification may carry both data and an error.
type Notification struct {
	Data []byte
	Err  error
}

// Conn is a single established connection. A Conn is owned by exactly one
// session; none of its methods are safe for concurrent use except Close.
type Conn interface {
	// Send writes p fully, bounded by timeout.
	Send(p []byte, timeout time.Duration) error

	// Receive blocks until at least min bytes have arrived or timeout
	// expires. It may return more than min bytes. Receive must not be
	// called once ArmNotify has been used on the connection.
	Receive(min int, timeout time.Duration) ([]byte, error)

	// ArmNotify schedules exactly one readiness notification, delivered
	// on Notifications. Re-arming while already armed is a no-op.
	ArmNotify()

	// Notifications delivers the result of armed reads.
	Notifications() <-chan Notification

	// Close tears the connection down. Pending armed reads are abandoned.
	Close() error
}

// Dialer opens connections for a session.
type Dialer interface {
	Dial(host string, port int, scheme Scheme) (Conn, error)
}
