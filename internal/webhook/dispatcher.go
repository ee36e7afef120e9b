package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/acme/catalog-console/internal/events"
)

// SubscriptionSource is the read side of the registry the dispatcher needs
type SubscriptionSource interface {
	ListEnabledByEvent(ctx context.Context, event string) ([]Subscription, error)
	Get(ctx context.Context, id string) (*Subscription, error)
}

// DeliverySink receives one log entry per delivery attempt
type DeliverySink interface {
	Append(ctx context.Context, entry DeliveryLogEntry) error
}

// notification is the body POSTed to subscriber URLs
type notification struct {
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Dispatcher delivers catalog events to matching webhook subscriptions.
// Each matching subscription is delivered on its own goroutine; a non-2xx
// response or transport error is retried with doubling delay up to
// maxAttempts, and every attempt is appended to the delivery log.
type Dispatcher struct {
	logger      *slog.Logger
	subs        SubscriptionSource
	logs        DeliverySink
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given retry policy
func NewDispatcher(logger *slog.Logger, subs SubscriptionSource, logs DeliverySink, maxAttempts int, baseDelay, requestTimeout time.Duration) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Dispatcher{
		logger:      logger,
		subs:        subs,
		logs:        logs,
		client:      &http.Client{Timeout: requestTimeout},
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// HandleEvent fans an event out to every enabled subscription whose event
// type matches. It snapshots the matching set up front, so subscriptions
// created or disabled after the event do not affect its deliveries.
func (d *Dispatcher) HandleEvent(ev events.Event) {
	ctx := context.Background()

	matched, err := d.subs.ListEnabledByEvent(ctx, ev.Type)
	if err != nil {
		d.logger.Error("failed to list subscriptions for event",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()))
		return
	}
	if len(matched) == 0 {
		return
	}

	d.logger.Debug("dispatching event to webhooks",
		slog.String("event", ev.Type),
		slog.Int("subscriptions", len(matched)))

	for _, sub := range matched {
		d.wg.Add(1)
		go func(sub Subscription) {
			defer d.wg.Done()
			d.deliver(ctx, sub, ev)
		}(sub)
	}
}

// deliver runs the full retry loop for one subscription
func (d *Dispatcher) deliver(ctx context.Context, sub Subscription, ev events.Event) {
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		entry := d.attempt(ctx, sub, ev.Type, ev.Payload, ev.OccurredAt, attempt)
		entry.Final = attempt == d.maxAttempts || entry.Succeeded()

		if err := d.logs.Append(ctx, entry); err != nil {
			d.logger.Error("failed to record delivery attempt",
				slog.String("subscription_id", sub.ID),
				slog.String("error", err.Error()))
		}

		if entry.Succeeded() {
			return
		}

		d.logger.Warn("webhook delivery failed",
			slog.String("subscription_id", sub.ID),
			slog.String("url", sub.URL),
			slog.Int("attempt", attempt),
			slog.Int("status", entry.ResponseStatus),
			slog.String("error", entry.Error))

		if attempt < d.maxAttempts {
			time.Sleep(d.baseDelay << (attempt - 1))
		}
	}
}

// attempt performs a single POST and records the outcome
func (d *Dispatcher) attempt(ctx context.Context, sub Subscription, event string, payload map[string]any, occurredAt time.Time, number int) DeliveryLogEntry {
	entry := DeliveryLogEntry{
		SubscriptionID: sub.ID,
		Timestamp:      time.Now().UTC(),
		Event:          event,
		Payload:        payload,
		AttemptNumber:  number,
	}

	body, err := json.Marshal(notification{
		Event:     event,
		Payload:   payload,
		Timestamp: occurredAt,
	})
	if err != nil {
		entry.Error = fmt.Sprintf("failed to encode notification: %v", err)
		return entry
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		entry.Error = fmt.Sprintf("failed to build request: %v", err)
		return entry
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	defer resp.Body.Close()

	entry.ResponseStatus = resp.StatusCode
	return entry
}

// TestDispatch sends one synchronous delivery to a subscription regardless of
// its enabled flag, with no retries, and records exactly one log entry
func (d *Dispatcher) TestDispatch(ctx context.Context, id string, payload map[string]any) (DeliveryLogEntry, error) {
	sub, err := d.subs.Get(ctx, id)
	if err != nil {
		return DeliveryLogEntry{}, err
	}

	entry := d.attempt(ctx, *sub, sub.Event, payload, time.Now().UTC(), 1)
	entry.Final = true

	if err := d.logs.Append(ctx, entry); err != nil {
		d.logger.Error("failed to record test dispatch",
			slog.String("subscription_id", sub.ID),
			slog.String("error", err.Error()))
	}
	return entry, nil
}

// Wait blocks until all in-flight deliveries have finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
