package webhook

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/catalog-console/internal/events"
)

//go:embed schema.sql
var schema string

// Registry stores webhook subscriptions in Postgres
type Registry struct {
	db *sqlx.DB
}

// NewRegistry creates a new subscription registry
func NewRegistry(db *sqlx.DB) *Registry {
	return &Registry{db: db}
}

// Migrate creates the webhooks table if it does not exist
func (r *Registry) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate webhooks schema: %w", err)
	}
	return nil
}

// validate checks the subscription invariants
func validate(sub *Subscription) error {
	if sub.URL == "" {
		return ErrMissingURL
	}
	if !events.Known(sub.Event) {
		return ErrInvalidEvent
	}
	return nil
}

// Create inserts a new subscription
func (r *Registry) Create(ctx context.Context, sub *Subscription) error {
	if err := validate(sub); err != nil {
		return err
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO webhooks (id, url, event, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query, sub.ID, sub.URL, sub.Event, sub.Enabled, sub.CreatedAt); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

// Get returns a subscription or ErrNotFound
func (r *Registry) Get(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	query := `
		SELECT id, url, event, enabled, created_at
		FROM webhooks
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &sub, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return &sub, nil
}

// List returns subscriptions newest-first, optionally filtered by enabled
func (r *Registry) List(ctx context.Context, enabled *bool) ([]Subscription, error) {
	query := `
		SELECT id, url, event, enabled, created_at
		FROM webhooks
	`
	args := []interface{}{}
	if enabled != nil {
		query += " WHERE enabled = $1"
		args = append(args, *enabled)
	}
	query += " ORDER BY created_at DESC"

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return subs, nil
}

// ListEnabledByEvent snapshots the enabled subscriptions matching an event
// type, for the dispatcher to loop over
func (r *Registry) ListEnabledByEvent(ctx context.Context, event string) ([]Subscription, error) {
	query := `
		SELECT id, url, event, enabled, created_at
		FROM webhooks
		WHERE event = $1 AND enabled = TRUE
	`

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, event); err != nil {
		return nil, fmt.Errorf("failed to list webhooks for event: %w", err)
	}
	return subs, nil
}

// Update replaces the mutable fields of a subscription
func (r *Registry) Update(ctx context.Context, sub *Subscription) error {
	if err := validate(sub); err != nil {
		return err
	}

	query := `
		UPDATE webhooks
		SET url = $1, event = $2, enabled = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, sub.URL, sub.Event, sub.Enabled, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a subscription. Delivery logs are retained; the dispatcher
// snapshot means in-flight deliveries finish and later events no longer match.
func (r *Registry) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
