package audit

import (
	"context"
	"log/slog"

	"lokal/pkg/requestcontext"
)

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// defaultBuffer bounds events queued ahead of the worker.
const defaultBuffer = 256

// Publisher queues events for a Worker so request paths never block on the
// sink. A nil *Publisher drops everything.
type Publisher struct {
	events chan Event
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{events: make(chan Event, defaultBuffer), logger: logger}
}

// Emit stamps the event with request time and id and enqueues it. When the
// queue is full the event is logged and dropped.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.events <- event:
	default:
		p.logger.WarnContext(ctx, "audit queue full, dropping event",
			"request_id", event.RequestID,
			"action", event.Action,
		)
	}
}

// Inbox exposes the queue to a Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.events
}
