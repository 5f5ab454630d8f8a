package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	defaultDialTimeout = 10 * time.Second
	readBufferSize     = 32 * 1024
)

// NetDialer opens plain TCP or TLS connections from the operating system's
// network stack.
type NetDialer struct {
	// Timeout bounds connection establishment. Zero means 10s.
	Timeout time.Duration

	// TLSConfig is used for encrypted connections. Nil means a default
	// config with the server name taken from the dialed host.
	TLSConfig *tls.Config
}

// Dial implements Dialer.
func (d *NetDialer) Dial(host string, port int, scheme Scheme) (Conn, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var (
		c   net.Conn
		err error
	)
	switch scheme {
	case SchemePlain:
		c, err = net.DialTimeout("tcp", addr, timeout)
	case SchemeEncrypted:
		cfg := d.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: host}
		}
		c, err = tls.DialWithDialer(&net.Dialer{Timeout: timeout}, "tcp", addr, cfg)
	default:
		return nil, fmt.Errorf("transport: unknown scheme %q", scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	return newNetConn(c), nil
}

// netConn wraps a net.Conn with the arm-once notification model. A single
// background goroutine performs at most one read per arming, so the owning
// session stays strictly sequential.
type netConn struct {
	c      net.Conn
	arm    chan struct{}
	notes  chan Notification
	closed chan struct{}
	once   sync.Once
}

func newNetConn(c net.Conn) *netConn {
	n := &netConn{
		c:      c,
		arm:    make(chan struct{}, 1),
		notes:  make(chan Notification, 1),
		closed: make(chan struct{}),
	}
	go n.readLoop()
	return n
}

func (n *netConn) Send(p []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := n.c.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("transport: set write deadline: %w", err)
		}
	}

	for len(p) > 0 {
		k, err := n.c.Write(p)
		if err != nil {
			return fmt.Errorf("transport: send: %w", err)
		}
		p = p[k:]
	}

	return nil
}

func (n *netConn) Receive(min int, timeout time.Duration) ([]byte, error) {
	if err := n.c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("transport: set read deadline: %w", err)
	}

	var out []byte
	buf := make([]byte, readBufferSize)
	for len(out) < min {
		k, err := n.c.Read(buf)
		out = append(out, buf[:k]...)
		if err != nil {
			return out, fmt.Errorf("transport: receive: %w", err)
		}
	}

	return out, nil
}

func (n *netConn) ArmNotify() {
	select {
	case n.arm <- struct{}{}:
	default:
		// Already armed.
	}
}

func (n *netConn) Notifications() <-chan Notification {
	return n.notes
}

func (n *netConn) Close() error {
	n.once.Do(func() { close(n.closed) })
	return n.c.Close()
}

func (n *netConn) readLoop() {
	buf := make([]byte, readBufferSize)

	for {
		select {
		case <-n.closed:
			return
		case <-n.arm:
		}

		// Streaming reads have no deadline; the peer drives delivery.
		_ = n.c.SetReadDeadline(time.Time{})

		k, err := n.c.Read(buf)

		var note Notification
		if k > 0 {
			note.Data = make([]byte, k)
			copy(note.Data, buf[:k])
		}
		note.Err = err

		select {
		case n.notes <- note:
		case <-n.closed:
			return
		}

		if err != nil {
			return
		}
	}
}
