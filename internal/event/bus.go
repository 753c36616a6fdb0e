package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	MatchCompleted    Type = "match.completed"
	MatchReviewNeeded Type = "match.review_needed"
	ProviderFailed    Type = "provider.failed"
)

// Event represents something that happened during matching.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler processes an event.
type Handler func(Event)

// Publisher accepts events. Bus implements it; tests may substitute a recorder.
type Publisher interface {
	Publish(Event)
}

// Bus is an in-process event bus backed by a buffered channel.
type Bus struct {
	ch     chan Event
	mu     sync.RWMutex
	subs   map[Type][]Handler
	all    []Handler
	logger *slog.Logger
}

// NewBus creates an event bus with the given buffer size.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		ch:     make(chan Event, bufSize),
		subs:   make(map[Type][]Handler),
		logger: logger.With(slog.String("component", "event")),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish queues an event without blocking; it is dropped with a warning when
// the buffer is full.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("event bus full, dropping event",
			slog.String("type", string(e.Type)),
			slog.String("run_id", e.RunID))
	}
}

// Run dispatches events until ctx is done, then drains what is buffered.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type])+len(b.all))
	handlers = append(handlers, b.subs[e.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", slog.String("type", string(e.Type)), slog.Any("panic", r))
				}
			}()
			h(e)
		}()
	}
}

// LogHandler returns a handler that writes each event to logger at info level.
func LogHandler(logger *slog.Logger) Handler {
	return func(e Event) {
		attrs := []any{slog.String("type", string(e.Type)), slog.String("run_id", e.RunID)}
		for k, v := range e.Data {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.Info("event", attrs...)
	}
}
