package webhook

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no subscription exists for an id
	ErrNotFound = errors.New("webhook subscription not found")

	// ErrMissingURL is returned when a subscription has no URL
	ErrMissingURL = errors.New("webhook url is required")

	// ErrInvalidEvent is returned when a subscription names an unknown event
	ErrInvalidEvent = errors.New("unknown webhook event")
)

// Subscription is a registered webhook listener: notifications for matching
// events are POSTed to URL while Enabled is true
type Subscription struct {
	ID        string    `db:"id" json:"id"`
	URL       string    `db:"url" json:"url"`
	Event     string    `db:"event" json:"event"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DeliveryLogEntry records one notification attempt. Entries are append-only
// per subscription and read newest-first.
type DeliveryLogEntry struct {
	SubscriptionID string         `json:"subscription_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Event          string         `json:"event"`
	Payload        map[string]any `json:"payload"`
	ResponseStatus int            `json:"response_status,omitempty"`
	Error          string         `json:"error,omitempty"`
	AttemptNumber  int            `json:"attempt_number"`
	Final          bool           `json:"final"`
}

// Succeeded reports whether the attempt got a 2xx response
func (e *DeliveryLogEntry) Succeeded() bool {
	return e.Error == "" && e.ResponseStatus >= 200 && e.ResponseStatus < 300
}
