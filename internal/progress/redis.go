package progress

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces progress hashes in Redis. The full key for a job is
// KeyPrefix + jobID; the development probe endpoint reads these keys raw.
const KeyPrefix = "job:progress:"

// RedisStore keeps one hash per job. All mutations run through Lua scripts
// so the duplicate-id and terminal-state guards hold under concurrent access.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed progress store
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Key returns the Redis key holding the progress hash for a job
func Key(jobID string) string {
	return KeyPrefix + jobID
}

var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'processed', 0, 'total', 0)
return 1
`)

// updateScript merges a patch under the terminal-state and monotonicity
// guards. ARGV: status ('' = keep), processed (-1 = keep), total (-1 = keep),
// reason ('' = keep).
var updateScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
  return 'missing'
end
if status == 'complete' or status == 'empty' or status == 'failed' then
  return 'terminal'
end
if ARGV[1] ~= '' then
  redis.call('HSET', KEYS[1], 'status', ARGV[1])
end
local nv = tonumber(ARGV[2])
if nv >= 0 then
  local cur = tonumber(redis.call('HGET', KEYS[1], 'processed')) or 0
  if nv > cur then
    redis.call('HSET', KEYS[1], 'processed', nv)
  end
end
if tonumber(ARGV[3]) >= 0 then
  redis.call('HSET', KEYS[1], 'total', ARGV[3])
end
if ARGV[4] ~= '' then
  redis.call('HSET', KEYS[1], 'reason', ARGV[4])
end
return 'ok'
`)

// Create implements Store
func (s *RedisStore) Create(ctx context.Context, jobID string) error {
	created, err := createScript.Run(ctx, s.rdb, []string{Key(jobID)}, StatusQueued).Int()
	if err != nil {
		return fmt.Errorf("failed to create progress record: %w", err)
	}
	if created == 0 {
		return ErrDuplicateJob
	}
	return nil
}

// Update implements Store
func (s *RedisStore) Update(ctx context.Context, jobID string, patch Patch) error {
	status := ""
	if patch.Status != nil {
		status = *patch.Status
	}
	processed := int64(-1)
	if patch.Processed != nil {
		processed = *patch.Processed
	}
	total := int64(-1)
	if patch.Total != nil {
		total = *patch.Total
	}
	reason := ""
	if patch.Reason != nil {
		reason = *patch.Reason
	}

	res, err := updateScript.Run(ctx, s.rdb, []string{Key(jobID)}, status, processed, total, reason).Text()
	if err != nil {
		return fmt.Errorf("failed to update progress record: %w", err)
	}
	switch res {
	case "missing":
		return ErrNotFound
	case "terminal":
		return ErrInvalidTransition
	}
	return nil
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, jobID string) (*Record, error) {
	fields, err := s.rdb.HGetAll(ctx, Key(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	processed, _ := strconv.ParseInt(fields["processed"], 10, 64)
	total, _ := strconv.ParseInt(fields["total"], 10, 64)

	return &Record{
		JobID:     jobID,
		Status:    fields["status"],
		Processed: processed,
		Total:     total,
		Percent:   percent(processed, total),
		Reason:    fields["reason"],
	}, nil
}
