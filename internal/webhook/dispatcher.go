package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sydlexius/autotagger/internal/event"
	"github.com/sydlexius/autotagger/internal/provider"
)

const (
	maxRetries     = 3
	requestTimeout = 10 * time.Second
)

// Dispatcher sends events to matching webhooks.
type Dispatcher struct {
	service    *Service
	httpClient *http.Client
	logger     *slog.Logger
	backoff    time.Duration
	wg         sync.WaitGroup
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher(service *Service, logger *slog.Logger) *Dispatcher {
	return NewDispatcherWithHTTPClient(service, &http.Client{Timeout: requestTimeout}, logger)
}

// NewDispatcherWithHTTPClient creates a dispatcher with a custom HTTP client (for testing).
func NewDispatcherWithHTTPClient(service *Service, httpClient *http.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		service:    service,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "webhook")),
		backoff:    time.Second,
	}
}

// HandleEvent is an event.Handler that delivers e to every enabled webhook
// subscribed to its type. Deliveries run in the background; Wait blocks
// until they finish.
func (d *Dispatcher) HandleEvent(e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	webhooks, err := d.service.ListByEvent(ctx, string(e.Type))
	if err != nil {
		d.logger.Error("listing webhooks for event", slog.String("type", string(e.Type)), slog.String("error", err.Error()))
		return
	}

	for i := range webhooks {
		w := webhooks[i]
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.deliver(context.Background(), w, e)
		}()
	}
}

// Wait blocks until all in-flight deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Test sends a synthetic match.completed event to w once, without retries.
func (d *Dispatcher) Test(ctx context.Context, w *Webhook) error {
	body, contentType := formatPayload(w, testEvent())
	return d.send(ctx, w.URL, body, contentType)
}

func (d *Dispatcher) deliver(ctx context.Context, w Webhook, e event.Event) {
	body, contentType := formatPayload(&w, e)
	log := d.logger.With(slog.String("webhook", w.Name), slog.String("event", string(e.Type)), slog.String("run_id", e.RunID))

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := d.backoff << uint(attempt-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
		}

		lastErr = d.send(ctx, w.URL, body, contentType)
		if lastErr == nil {
			log.Debug("webhook delivered", slog.Int("attempt", attempt+1))
			return
		}
		log.Warn("webhook delivery failed", slog.Int("attempt", attempt+1), slog.String("error", lastErr.Error()))
	}

	log.Error("webhook delivery exhausted retries", slog.String("error", lastErr.Error()))
}

func (d *Dispatcher) send(ctx context.Context, url string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", provider.UserAgent())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func testEvent() event.Event {
	return event.Event{
		Type:      event.MatchCompleted,
		Timestamp: time.Now().UTC(),
		RunID:     "test",
		Data: map[string]any{
			"message": "Test notification from autotagger",
		},
	}
}
