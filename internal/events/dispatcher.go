package events

import (
	"context"
	"log/slog"
)

// Publisher delivers an event to one sink.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Sink is what services emit into.
type Sink interface {
	Emit(ctx context.Context, evt Event)
}

// Dispatcher fans events out to every publisher. Publisher failures are
// logged and never reach the caller.
type Dispatcher struct {
	logger     *slog.Logger
	publishers []Publisher
}

// NewDispatcher builds a Dispatcher; nil publishers are skipped.
func NewDispatcher(logger *slog.Logger, publishers ...Publisher) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	for _, p := range publishers {
		if p != nil {
			d.publishers = append(d.publishers, p)
		}
	}
	return d
}

// Emit publishes evt to all sinks.
func (d *Dispatcher) Emit(ctx context.Context, evt Event) {
	if d == nil {
		return
	}
	for _, p := range d.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			d.logger.Warn("publish event",
				slog.String("type", string(evt.Type)),
				slog.Int64("entity_id", evt.EntityID),
				slog.Any("error", err))
		}
	}
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	Events []Event
}

// Emit appends evt.
func (r *Recorder) Emit(_ context.Context, evt Event) {
	r.Events = append(r.Events, evt)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	out := make([]Type, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
