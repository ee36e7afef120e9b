package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/catalog-console/internal/events"
)

// fakeSource serves a fixed set of subscriptions
type fakeSource struct {
	subs []Subscription
}

func (f *fakeSource) ListEnabledByEvent(_ context.Context, event string) ([]Subscription, error) {
	matched := []Subscription{}
	for _, sub := range f.subs {
		if sub.Enabled && sub.Event == event {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

func (f *fakeSource) Get(_ context.Context, id string) (*Subscription, error) {
	for _, sub := range f.subs {
		if sub.ID == id {
			s := sub
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

// memorySink collects delivery log entries in order
type memorySink struct {
	mu      sync.Mutex
	entries []DeliveryLogEntry
}

func (s *memorySink) Append(_ context.Context, entry DeliveryLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memorySink) all() []DeliveryLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeliveryLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func newTestDispatcher(subs []Subscription) (*Dispatcher, *memorySink) {
	sink := &memorySink{}
	logger := slog.New(slog.DiscardHandler)
	d := NewDispatcher(logger, &fakeSource{subs: subs}, sink, 3, time.Millisecond, time.Second)
	return d, sink
}

func TestDispatcherDeliversToMatchingSubscription(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, sink := newTestDispatcher([]Subscription{
		{ID: "sub-1", URL: srv.URL, Event: events.ProductCreated, Enabled: true},
	})

	d.HandleEvent(events.Event{
		Type:       events.ProductCreated,
		Payload:    map[string]any{"sku": "ABC-1"},
		OccurredAt: time.Now().UTC(),
	})
	d.Wait()

	assert.Equal(t, int32(1), hits.Load())

	entries := sink.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "sub-1", entries[0].SubscriptionID)
	assert.Equal(t, events.ProductCreated, entries[0].Event)
	assert.Equal(t, http.StatusOK, entries[0].ResponseStatus)
	assert.Equal(t, 1, entries[0].AttemptNumber)
	assert.True(t, entries[0].Final)
	assert.True(t, entries[0].Succeeded())
}

func TestDispatcherSkipsDisabledAndMismatched(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, sink := newTestDispatcher([]Subscription{
		{ID: "disabled", URL: srv.URL, Event: events.ProductDeleted, Enabled: false},
		{ID: "other-event", URL: srv.URL, Event: events.ProductCreated, Enabled: true},
	})

	d.HandleEvent(events.Event{Type: events.ProductDeleted, Payload: map[string]any{"sku": "X"}})
	d.Wait()

	assert.Equal(t, int32(0), hits.Load())
	assert.Empty(t, sink.all())
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, sink := newTestDispatcher([]Subscription{
		{ID: "sub-1", URL: srv.URL, Event: events.ProductUpdated, Enabled: true},
	})

	d.HandleEvent(events.Event{Type: events.ProductUpdated, Payload: map[string]any{"sku": "X"}})
	d.Wait()

	assert.Equal(t, int32(2), hits.Load())

	entries := sink.all()
	require.Len(t, entries, 2)
	assert.Equal(t, http.StatusBadGateway, entries[0].ResponseStatus)
	assert.False(t, entries[0].Final)
	assert.Equal(t, http.StatusOK, entries[1].ResponseStatus)
	assert.Equal(t, 2, entries[1].AttemptNumber)
	assert.True(t, entries[1].Final)
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, sink := newTestDispatcher([]Subscription{
		{ID: "sub-1", URL: srv.URL, Event: events.ImportCompleted, Enabled: true},
	})

	d.HandleEvent(events.Event{Type: events.ImportCompleted, Payload: map[string]any{"upload_id": "j1"}})
	d.Wait()

	assert.Equal(t, int32(3), hits.Load())

	entries := sink.all()
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.AttemptNumber)
		assert.False(t, entry.Succeeded())
	}
	assert.False(t, entries[0].Final)
	assert.False(t, entries[1].Final)
	assert.True(t, entries[2].Final)
}

func TestDispatcherLogsTransportError(t *testing.T) {
	d, sink := newTestDispatcher([]Subscription{
		// Nothing listens on this port.
		{ID: "sub-1", URL: "http://127.0.0.1:1", Event: events.ProductCreated, Enabled: true},
	})

	d.HandleEvent(events.Event{Type: events.ProductCreated, Payload: map[string]any{"sku": "X"}})
	d.Wait()

	entries := sink.all()
	require.Len(t, entries, 3)
	assert.NotEmpty(t, entries[0].Error)
	assert.Zero(t, entries[0].ResponseStatus)
	assert.False(t, entries[0].Succeeded())
}

func TestDispatcherFansOutToAllMatches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, sink := newTestDispatcher([]Subscription{
		{ID: "sub-1", URL: srv.URL, Event: events.ProductCreated, Enabled: true},
		{ID: "sub-2", URL: srv.URL, Event: events.ProductCreated, Enabled: true},
	})

	d.HandleEvent(events.Event{Type: events.ProductCreated, Payload: map[string]any{"sku": "X"}})
	d.Wait()

	assert.Equal(t, int32(2), hits.Load())
	assert.Len(t, sink.all(), 2)
}

func TestTestDispatchIgnoresEnabledFlag(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, sink := newTestDispatcher([]Subscription{
		{ID: "sub-1", URL: srv.URL, Event: events.ProductCreated, Enabled: false},
	})

	entry, err := d.TestDispatch(context.Background(), "sub-1", map[string]any{"ping": true})
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, entry.Succeeded())
	assert.True(t, entry.Final)
	assert.Equal(t, 1, entry.AttemptNumber)
	assert.Len(t, sink.all(), 1)
}

func TestTestDispatchNoRetryOnFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, sink := newTestDispatcher([]Subscription{
		{ID: "sub-1", URL: srv.URL, Event: events.ProductCreated, Enabled: true},
	})

	entry, err := d.TestDispatch(context.Background(), "sub-1", map[string]any{"ping": true})
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, entry.Succeeded())
	assert.True(t, entry.Final)
	assert.Len(t, sink.all(), 1)
}

func TestTestDispatchUnknownSubscription(t *testing.T) {
	d, _ := newTestDispatcher(nil)

	_, err := d.TestDispatch(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
