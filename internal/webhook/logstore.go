package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// logKeyPrefix namespaces delivery logs in Redis, one list per subscription
const logKeyPrefix = "webhook:log:"

// DefaultLogPage bounds how many entries the logs endpoint returns
const DefaultLogPage = 50

// LogStore keeps the delivery log as a capped Redis list per subscription,
// newest entry first
type LogStore struct {
	rdb   *redis.Client
	limit int64
}

// NewLogStore creates a log store retaining up to limit entries per
// subscription
func NewLogStore(rdb *redis.Client, limit int) *LogStore {
	if limit <= 0 {
		limit = 100
	}
	return &LogStore{rdb: rdb, limit: int64(limit)}
}

func logKey(subscriptionID string) string {
	return logKeyPrefix + subscriptionID
}

// Append records one delivery attempt and trims the list to the retention cap
func (s *LogStore) Append(ctx context.Context, entry DeliveryLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery log entry: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, logKey(entry.SubscriptionID), data)
	pipe.LTrim(ctx, logKey(entry.SubscriptionID), 0, s.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append delivery log entry: %w", err)
	}
	return nil
}

// List returns up to count entries for a subscription, newest first
func (s *LogStore) List(ctx context.Context, subscriptionID string, count int64) ([]DeliveryLogEntry, error) {
	if count <= 0 {
		count = DefaultLogPage
	}

	raw, err := s.rdb.LRange(ctx, logKey(subscriptionID), 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery log: %w", err)
	}

	entries := make([]DeliveryLogEntry, 0, len(raw))
	for _, item := range raw {
		var entry DeliveryLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
