package listencmder

import (
	"context"
	"errors"
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pushpipe/pushpipe/client"
	"github.com/pushpipe/pushpipe/pkg/eventstream"
	"github.com/pushpipe/pushpipe/pkg/httpx"
	"github.com/pushpipe/pushpipe/pkg/journal"
	"github.com/pushpipe/pushpipe/pkg/sse"
)

const (
	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second
	maxAttempts = 10
)

type subscriptionConfig struct {
	target    client.Target
	path      string
	store     journal.Store
	publisher eventstream.Publisher
	source    eventstream.EventSource
	events    *charmlog.Logger
	logger    *zap.Logger
}

// subscriptionHandler drives one subscription: it connects on start,
// reconnects with exponential backoff, resumes from the last received event
// ID, and fans received events out to the terminal, the local journal, and
// the eventstream publisher.
type subscriptionHandler struct {
	config subscriptionConfig

	lastEventID string
	attempts    int
}

func newSubscriptionHandler(config subscriptionConfig) *subscriptionHandler {
	return &subscriptionHandler{config: config}
}

func (h *subscriptionHandler) Init() client.Decision {
	return client.Connect(h.config.target, h.request())
}

func (h *subscriptionHandler) OnConnected(resp *httpx.Response) client.Decision {
	h.attempts = 0
	h.config.logger.Info("subscribed",
		zap.String("host", h.config.target.Host),
		zap.Int("status", resp.StatusCode),
	)

	return client.Idle()
}

func (h *subscriptionHandler) OnConnectFailed(reason error) client.Decision {
	h.attempts++
	if h.attempts >= maxAttempts {
		return client.Stop(fmt.Errorf("giving up after %d attempts: %w", h.attempts, reason))
	}

	delay := h.backoff()
	h.config.logger.Warn("connect failed, retrying",
		zap.Error(reason),
		zap.Int("attempt", h.attempts),
		zap.Duration("backoff", delay),
	)

	return client.ConnectAfter(h.config.target, h.request(), delay)
}

func (h *subscriptionHandler) OnDisconnected(reason error) client.Decision {
	h.attempts++
	if h.attempts >= maxAttempts {
		return client.Stop(fmt.Errorf("giving up after %d attempts: %w", h.attempts, reason))
	}

	delay := h.backoff()
	if errors.Is(reason, client.ErrStreamEnded) {
		h.config.logger.Info("stream ended, resubscribing",
			zap.Duration("backoff", delay),
		)
	} else {
		h.config.logger.Warn("disconnected, resubscribing",
			zap.Error(reason),
			zap.Duration("backoff", delay),
		)
	}

	return client.ConnectAfter(h.config.target, h.request(), delay)
}

func (h *subscriptionHandler) OnEvent(ev *sse.Event) {
	if ev.ID != "" {
		h.lastEventID = ev.ID
	}

	if len(ev.Lines) == 0 {
		// Comment-only blocks are keep-alives, not events.
		for _, comment := range ev.Comments {
			h.config.logger.Debug("comment received", zap.String("comment", comment))
		}
		return
	}

	keyvals := []any{}
	if ev.Type != "" {
		keyvals = append(keyvals, "type", ev.Type)
	}
	if ev.ID != "" {
		keyvals = append(keyvals, "id", ev.ID)
	}
	h.config.events.Info(ev.Data(), keyvals...)

	now := time.Now().UTC()
	ctx := context.Background()

	if h.config.store != nil {
		_, err := h.config.store.Append(ctx, &journal.Entry{
			ID:   ev.ID,
			Type: ev.Type,
			Data: ev.Data(),
			At:   now,
		})
		if err != nil {
			h.config.logger.Error("journaling event failed", zap.Error(err))
		}
	}

	if h.config.publisher != nil {
		err := h.config.publisher.PublishReceived(ctx, &eventstream.ReceivedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeReceived,
			EventID:       uuid.NewString(),
			EmittedAt:     now,
			Source:        h.config.source,
			Push: eventstream.PushMeta{
				ID:         ev.ID,
				Type:       ev.Type,
				Data:       ev.Data(),
				ReceivedAt: now,
			},
		})
		if err != nil {
			h.config.logger.Error("republishing event failed", zap.Error(err))
		}
	}
}

func (h *subscriptionHandler) OnSignal(sig any) client.Decision {
	h.config.logger.Debug("ignoring signal", zap.Any("signal", sig))
	return client.Idle()
}

// request builds the subscription request head, resuming from the last
// received event ID when one is known.
func (h *subscriptionHandler) request() *httpx.Request {
	req := httpx.NewRequest(h.config.target.Host, h.config.path)
	if h.lastEventID != "" {
		req.SetLastEventID(h.lastEventID)
	}

	return req
}

// backoff returns the delay before the next attempt, doubling per attempt
// up to maxBackoff.
func (h *subscriptionHandler) backoff() time.Duration {
	delay := baseBackoff << (h.attempts - 1)
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}

	return delay
}
