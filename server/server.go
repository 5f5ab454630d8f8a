package server

import (
	"io"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pushpipe/pushpipe/pkg/journal"
	"github.com/pushpipe/pushpipe/pkg/sse"
)

// ErrorResponse is the JSON error body returned by the server.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PublishRequest is the JSON body accepted by the publish endpoint.
type PublishRequest struct {
	Type string `json:"type,omitempty"`
	Data string `json:"data"`
}

// PublishResponse echoes back the assigned event identity.
type PublishResponse struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"`
}

// Server is the broadcast server. Published events are journaled, then
// fanned out to every open subscription as a text/event-stream block.
type Server struct {
	config Config
	hub    *Hub
	store  journal.Store
	logger *zap.Logger
	app    *fiber.App
}

// New creates a new broadcast server.
// The journal store is injected so the server and listener can share one.
func New(config Config, store journal.Store, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		hub:    NewHub(logger),
		store:  store,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/events", s.handleSubscribe)
	app.Post("/publish", s.handlePublish)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting broadcast server",
		zap.String("listen", s.config.ListenAddr),
	)

	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting broadcast server",
		zap.String("listen", listener.Addr().String()),
	)

	return s.app.Listener(listener)
}

// Close drops all subscriptions and shuts the server down.
func (s *Server) Close() error {
	s.hub.Close()
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handlePublish journals the event, assigns it an ID, and broadcasts it to
// all open subscriptions.
func (s *Server) handlePublish(c *fiber.Ctx) error {
	var req PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	id := uuid.NewString()

	opts := []sse.Option{sse.WithID(id)}
	if req.Type != "" {
		opts = append(opts, sse.WithType(req.Type))
	}

	frame, err := sse.New(req.Data, opts...).MarshalText()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	entry, err := s.store.Append(c.Context(), &journal.Entry{
		ID:   id,
		Type: req.Type,
		Data: req.Data,
	})
	if err != nil {
		s.logger.Error("journaling event failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to journal event"})
	}

	s.hub.Broadcast(frame)

	s.logger.Debug("published event",
		zap.String("id", id),
		zap.String("type", req.Type),
		zap.Int("subscribers", s.hub.Len()),
	)

	return c.JSON(PublishResponse{ID: entry.ID, Seq: entry.Seq})
}

// handleSubscribe holds the connection open and streams published events.
// A Last-Event-ID header replays journaled events the subscriber missed
// before live delivery begins.
func (s *Server) handleSubscribe(c *fiber.Ctx) error {
	var replay []*journal.Entry

	if lastID := c.Get("Last-Event-ID"); lastID != "" {
		entries, err := s.store.After(c.Context(), lastID)
		if err != nil {
			// An unknown ID just means nothing to replay; the subscriber
			// still gets live events.
			s.logger.Warn("replay unavailable",
				zap.String("last_event_id", lastID),
				zap.Error(err),
			)
		} else {
			if s.config.ReplayLimit > 0 && len(entries) > s.config.ReplayLimit {
				entries = entries[len(entries)-s.config.ReplayLimit:]
			}
			replay = entries
		}
	}

	sub := s.hub.Subscribe()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// io.Pipe gives per-block backpressure: pw.Write blocks until fasthttp's
	// chunked writer has flushed the block to the socket. SetBodyStream with
	// size -1 triggers chunked transfer encoding.
	pr, pw := io.Pipe()
	go s.pumpSubscription(sub, replay, pw)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// pumpSubscription writes replayed then live frames to the pipe until the
// subscriber is dropped or the client goes away.
func (s *Server) pumpSubscription(sub *Subscriber, replay []*journal.Entry, pw *io.PipeWriter) {
	defer s.hub.Unsubscribe(sub)
	defer pw.Close()

	for _, entry := range replay {
		frame, err := entryFrame(entry)
		if err != nil {
			s.logger.Warn("skipping unreplayable entry",
				zap.String("id", entry.ID),
				zap.Error(err),
			)
			continue
		}
		if _, err := pw.Write(frame); err != nil {
			return
		}
	}

	var keepalive <-chan time.Time
	if s.config.KeepAlive > 0 {
		ticker := time.NewTicker(s.config.KeepAlive)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	for {
		select {
		case frame, ok := <-sub.C:
			if !ok {
				return
			}
			if _, err := pw.Write(frame); err != nil {
				return
			}

		case <-keepalive:
			frame, err := (&sse.Event{Comments: []string{"keep-alive"}}).MarshalText()
			if err != nil {
				return
			}
			if _, err := pw.Write(frame); err != nil {
				return
			}
		}
	}
}

// entryFrame renders a journal entry as a wire block.
func entryFrame(entry *journal.Entry) ([]byte, error) {
	opts := []sse.Option{sse.WithID(entry.ID)}
	if entry.Type != "" {
		opts = append(opts, sse.WithType(entry.Type))
	}

	return sse.New(entry.Data, opts...).MarshalText()
}
