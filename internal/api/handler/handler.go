// Package handler implements the HTTP handlers of the admin API.
package handler

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/acme/catalog-console/internal/catalog"
	"github.com/acme/catalog-console/internal/events"
	"github.com/acme/catalog-console/internal/progress"
	"github.com/acme/catalog-console/internal/webhook"
)

// ProductStore is the product persistence the handlers need
type ProductStore interface {
	Create(ctx context.Context, p *catalog.Product) error
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
	Update(ctx context.Context, p *catalog.Product) error
	Delete(ctx context.Context, id string) (*catalog.Product, error)
	List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error)
}

// SubscriptionStore is the webhook registry surface the handlers need
type SubscriptionStore interface {
	Create(ctx context.Context, sub *webhook.Subscription) error
	Get(ctx context.Context, id string) (*webhook.Subscription, error)
	List(ctx context.Context, enabled *bool) ([]webhook.Subscription, error)
	Update(ctx context.Context, sub *webhook.Subscription) error
	Delete(ctx context.Context, id string) error
}

// LogReader reads delivery log pages
type LogReader interface {
	List(ctx context.Context, subscriptionID string, count int64) ([]webhook.DeliveryLogEntry, error)
}

// TestDispatcher performs manual webhook connectivity tests
type TestDispatcher interface {
	TestDispatch(ctx context.Context, id string, payload map[string]any) (webhook.DeliveryLogEntry, error)
}

// JobQueue publishes job messages to the worker service
type JobQueue interface {
	Publish(ctx context.Context, body []byte) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Products      ProductStore
	Progress      progress.Store
	Subscriptions SubscriptionStore
	Logs          LogReader
	Dispatcher    TestDispatcher
	Publisher     events.Publisher
	Queue         JobQueue
	Redis         *redis.Client
	UploadDir     string
	Environment   string
}
