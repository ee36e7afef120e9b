package progress

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreTests exercises the Store contract against any implementation.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create then get returns queued record", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "job-1"))

		rec, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, StatusQueued, rec.Status)
		assert.EqualValues(t, 0, rec.Processed)
		assert.EqualValues(t, 0, rec.Total)
		assert.Equal(t, 0, rec.Percent)
	})

	t.Run("create twice returns ErrDuplicateJob", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "job-1"))
		assert.ErrorIs(t, store.Create(ctx, "job-1"), ErrDuplicateJob)
	})

	t.Run("get unknown id returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update unknown id returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		err := store.Update(ctx, "nope", Patch{Status: String(StatusProcessing)})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update merges fields and derives percent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "job-1"))
		require.NoError(t, store.Update(ctx, "job-1", Patch{
			Status:    String(StatusProcessing),
			Processed: Int64(25),
			Total:     Int64(100),
		}))

		rec, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, rec.Status)
		assert.EqualValues(t, 25, rec.Processed)
		assert.EqualValues(t, 100, rec.Total)
		assert.Equal(t, 25, rec.Percent)
	})

	t.Run("processed never decreases", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "job-1"))
		require.NoError(t, store.Update(ctx, "job-1", Patch{Processed: Int64(50)}))
		require.NoError(t, store.Update(ctx, "job-1", Patch{Processed: Int64(10)}))

		rec, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.EqualValues(t, 50, rec.Processed)
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		for _, terminal := range []string{StatusComplete, StatusEmpty, StatusFailed} {
			store := newStore(t)
			require.NoError(t, store.Create(ctx, "job-1"))
			require.NoError(t, store.Update(ctx, "job-1", Patch{Status: String(terminal)}))

			err := store.Update(ctx, "job-1", Patch{Status: String(StatusProcessing)})
			assert.ErrorIs(t, err, ErrInvalidTransition, "from %s", terminal)
			err = store.Update(ctx, "job-1", Patch{Processed: Int64(999)})
			assert.ErrorIs(t, err, ErrInvalidTransition, "from %s", terminal)

			// Reads after a terminal transition keep returning the same record.
			rec, err := store.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, terminal, rec.Status)
		}
	})

	t.Run("failed record keeps reason", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "job-1"))
		require.NoError(t, store.Update(ctx, "job-1", Patch{
			Status: String(StatusFailed),
			Reason: String("SKU header not found"),
		}))

		rec, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, rec.Status)
		assert.Equal(t, "SKU header not found", rec.Reason)
	})

	t.Run("percent is zero while total unknown", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "job-1"))
		require.NoError(t, store.Update(ctx, "job-1", Patch{Processed: Int64(10)}))

		rec, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.Percent)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		return NewRedisStore(rdb)
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusQueued))
	assert.False(t, IsTerminal(StatusProcessing))
	assert.True(t, IsTerminal(StatusComplete))
	assert.True(t, IsTerminal(StatusEmpty))
	assert.True(t, IsTerminal(StatusFailed))
}
