// Package client implements the connection lifecycle state machine for a
// push-event stream subscription: idle, connecting, streaming, and back,
// with every transition mediated by a caller-supplied Handler.
//
// One session is one strictly sequential machine. Socket bytes flow through
// a dechunking stage into the event codec, and decoded events are dispatched
// to the handler one at a time. The next read notification is re-armed
// before events are dispatched, so a slow consumer cannot stall delivery of
// the readiness signal behind its own callback. Multiple sessions share
// nothing; run one goroutine per session.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pushpipe/pushpipe/pkg/httpx"
	"github.com/pushpipe/pushpipe/pkg/sse"
	"github.com/pushpipe/pushpipe/pkg/transport"
)

var (
	// ErrStreamEnded reports an orderly end of stream: the peer sent the
	// terminating chunk. Handed to OnDisconnected as the reason.
	ErrStreamEnded = errors.New("client: stream ended")

	// ErrNotChunked reports a response head without chunked transfer
	// coding, which cannot carry an open-ended event stream.
	ErrNotChunked = errors.New("client: response body is not chunked")

	// ErrNotEventStream reports a response head whose content type is not
	// text/event-stream.
	ErrNotEventStream = errors.New("client: response is not an event stream")
)

// Dechunker turns raw body bytes into discrete chunk payloads. Decode
// extracts every complete payload from buf and returns the undecoded
// remainder, which the session retains and re-submits grown by the next
// read. done reports that the stream's terminating chunk was consumed.
type Dechunker interface {
	Decode(buf []byte) (payloads [][]byte, rest []byte, done bool, err error)
}

const (
	defaultHeadTimeout = 5 * time.Second
	defaultSendTimeout = 5 * time.Second
	signalBuffer       = 16
)

// Config carries the collaborators and tunables of a session. The zero
// value is usable: it dials real sockets and decodes chunked bodies.
type Config struct {
	// Dialer opens transport connections. Defaults to a NetDialer.
	Dialer transport.Dialer

	// Dechunker decodes the body's chunk framing. Defaults to the
	// chunked transfer-coding decoder.
	Dechunker Dechunker

	// HeadTimeout bounds the wait for the response head on connect.
	HeadTimeout time.Duration

	// SendTimeout bounds the outbound request-head write.
	SendTimeout time.Duration

	// Logger receives lifecycle diagnostics. Defaults to a nop logger.
	Logger *zap.Logger
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateConnecting
	stateStreaming
	stateStopped
)

// Session drives one subscription's lifecycle. Create it with NewSession and
// drive it with Run; Signal may be called from any goroutine.
type Session struct {
	handler Handler
	config  Config
	logger  *zap.Logger

	state sessionState
	conn  transport.Conn

	// chunkBuf holds bytes that have not yet formed a complete chunk;
	// eventBuf holds chunk payloads that have not yet formed a complete
	// event. Both persist across notifications and are cleared on
	// disconnect.
	chunkBuf []byte
	eventBuf []byte

	signals chan any
}

// NewSession creates a session around the given handler.
func NewSession(handler Handler, config Config) *Session {
	if config.Dialer == nil {
		config.Dialer = &transport.NetDialer{}
	}
	if config.Dechunker == nil {
		config.Dechunker = httpx.ChunkDecoder{}
	}
	if config.HeadTimeout == 0 {
		config.HeadTimeout = defaultHeadTimeout
	}
	if config.SendTimeout == 0 {
		config.SendTimeout = defaultSendTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Session{
		handler: handler,
		config:  config,
		logger:  config.Logger,
		signals: make(chan any, signalBuffer),
	}
}

// Signal injects an arbitrary external value into the session. It is
// forwarded verbatim to the handler's OnSignal hook from the session's own
// goroutine. Safe for concurrent use.
func (s *Session) Signal(sig any) {
	s.signals <- sig
}

// Run executes the state machine until a Stop decision or context
// cancellation, returning the stop reason. Run must be called once.
func (s *Session) Run(ctx context.Context) error {
	dec := s.handler.Init()

	for {
		switch dec.kind {
		case decideStop:
			s.teardown()
			s.state = stateStopped
			if dec.reason != nil {
				s.logger.Info("session stopped", zap.Error(dec.reason))
			}
			return dec.reason

		case decideConnect:
			if d, ok := s.waitDelay(ctx, dec.delay); !ok {
				dec = d
				continue
			}
			dec = s.connect(ctx, dec.target, dec.req)

		default:
			dec = s.idle(ctx)
		}
	}
}

// idle blocks until a signal or cancellation produces the next decision.
func (s *Session) idle(ctx context.Context) Decision {
	s.state = stateIdle

	for {
		select {
		case <-ctx.Done():
			return Stop(ctx.Err())
		case sig := <-s.signals:
			if d := s.handler.OnSignal(sig); d.kind != decideIdle {
				return d
			}
		}
	}
}

// waitDelay sleeps out a backoff delay while still forwarding signals.
// ok is false when a signal or cancellation overrode the pending connect.
func (s *Session) waitDelay(ctx context.Context, delay time.Duration) (Decision, bool) {
	if delay <= 0 {
		return Decision{}, true
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Stop(ctx.Err()), false
		case <-timer.C:
			return Decision{}, true
		case sig := <-s.signals:
			if d := s.handler.OnSignal(sig); d.kind != decideIdle {
				return d, false
			}
		}
	}
}

// connect performs one connect attempt and, on success, runs the streaming
// loop to completion. The returned decision is the handler's verdict on
// whatever ended the attempt or the stream.
func (s *Session) connect(ctx context.Context, target Target, req *httpx.Request) Decision {
	s.state = stateConnecting
	s.logger.Debug("connecting",
		zap.String("host", target.Host),
		zap.Int("port", target.Port),
		zap.String("scheme", string(target.Scheme)),
	)

	conn, err := s.config.Dialer.Dial(target.Host, target.Port, target.Scheme)
	if err != nil {
		s.state = stateIdle
		return s.handler.OnConnectFailed(fmt.Errorf("dial: %w", err))
	}

	if err := conn.Send(req.Marshal(), s.config.SendTimeout); err != nil {
		conn.Close()
		s.state = stateIdle
		return s.handler.OnConnectFailed(fmt.Errorf("send request: %w", err))
	}

	resp, leftover, err := s.readHead(conn)
	if err != nil {
		conn.Close()
		s.state = stateIdle
		return s.handler.OnConnectFailed(err)
	}

	if !resp.Chunked() {
		conn.Close()
		s.state = stateIdle
		return s.handler.OnConnectFailed(ErrNotChunked)
	}
	if !resp.IsEventStream() {
		conn.Close()
		s.state = stateIdle
		return s.handler.OnConnectFailed(ErrNotEventStream)
	}

	s.conn = conn
	s.state = stateStreaming
	s.chunkBuf = leftover
	s.logger.Debug("streaming",
		zap.Int("status", resp.StatusCode),
		zap.Int("leftover_bytes", len(leftover)),
	)

	if d := s.handler.OnConnected(resp); d.kind != decideIdle {
		s.teardown()
		s.state = stateIdle
		return d
	}

	return s.stream(ctx)
}

// readHead accumulates bytes until the full response head has arrived,
// bounded by HeadTimeout. Body bytes that arrived with the head are
// returned as leftover.
func (s *Session) readHead(conn transport.Conn) (*httpx.Response, []byte, error) {
	deadline := time.Now().Add(s.config.HeadTimeout)

	var buf []byte
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil, fmt.Errorf("read response head: %w", context.DeadlineExceeded)
		}

		data, err := conn.Receive(1, remaining)
		buf = append(buf, data...)

		resp, rest, perr := httpx.ParseResponseHead(buf)
		if perr == nil {
			return resp, rest, nil
		}
		if !errors.Is(perr, httpx.ErrIncompleteHead) {
			return nil, nil, fmt.Errorf("parse response head: %w", perr)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read response head: %w", err)
		}
	}
}

// stream processes readiness notifications until the stream ends or a
// decision unwinds the machine.
func (s *Session) stream(ctx context.Context) Decision {
	// Body bytes may have arrived together with the response head; run
	// them through the pipeline before waiting for the first notification.
	if err := s.pump(nil); err != nil {
		return s.disconnect(err)
	}

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return Stop(ctx.Err())

		case sig := <-s.signals:
			if d := s.handler.OnSignal(sig); d.kind != decideIdle {
				s.teardown()
				s.state = stateIdle
				return d
			}

		case note := <-s.conn.Notifications():
			if len(note.Data) > 0 {
				if err := s.pump(note.Data); err != nil {
					return s.disconnect(err)
				}
			}
			if note.Err != nil {
				return s.disconnect(fmt.Errorf("receive: %w", note.Err))
			}
		}
	}
}

// pump runs the byte-to-event pipeline: grow the pending-chunk buffer,
// dechunk, grow the pending-event buffer, decode events, re-arm the next
// read notification, then dispatch. Re-arming strictly before dispatch is a
// liveness guarantee: a handler that is slow to consume events must not
// delay the next readiness signal.
func (s *Session) pump(data []byte) error {
	s.chunkBuf = append(s.chunkBuf, data...)

	payloads, chunkRest, done, err := s.config.Dechunker.Decode(s.chunkBuf)
	if err != nil {
		return fmt.Errorf("dechunk: %w", err)
	}
	s.chunkBuf = chunkRest

	for _, p := range payloads {
		s.eventBuf = append(s.eventBuf, p...)
	}

	events, eventRest, err := sse.ParseAll(s.eventBuf)
	if err != nil {
		return fmt.Errorf("decode events: %w", err)
	}
	s.eventBuf = eventRest

	if !done {
		s.conn.ArmNotify()
	}

	for _, ev := range events {
		s.handler.OnEvent(ev)
	}

	if done {
		return ErrStreamEnded
	}
	return nil
}

// disconnect tears down the connection and asks the handler what to do next.
func (s *Session) disconnect(reason error) Decision {
	s.logger.Debug("disconnected", zap.Error(reason))
	s.teardown()
	s.state = stateIdle
	return s.handler.OnDisconnected(reason)
}

// teardown releases the connection handle and both pending buffers.
func (s *Session) teardown() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.chunkBuf = nil
	s.eventBuf = nil
}
