// internal/audit/audit_test.go
package audit_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textpulse/sms-backend/internal/audit"
	"github.com/textpulse/sms-backend/internal/queue"
)

type memStore struct {
	mu      sync.Mutex
	entries []audit.Entry
	done    chan struct{}
}

func newMemStore(expected int) *memStore {
	return &memStore{done: make(chan struct{}, expected)}
}

func (s *memStore) Insert(action, meta string) error {
	s.mu.Lock()
	s.entries = append(s.entries, audit.Entry{Action: action, Meta: meta})
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *memStore) wait(t *testing.T, n int) []audit.Entry {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.done:
		case <-time.After(time.Second):
			t.Fatal("audit entry never persisted")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

func TestRecorderRoundTrip(t *testing.T) {
	q := queue.NewInMemoryQueue(zerolog.Nop())
	store := newMemStore(1)
	require.NoError(t, audit.StartWriter(q, store, zerolog.Nop()))

	rec := audit.NewRecorder(q, zerolog.Nop())
	rec.Record("campaign_started", "id=1,queued=5")

	entries := store.wait(t, 1)
	assert.Equal(t, "campaign_started", entries[0].Action)
	assert.Equal(t, "id=1,queued=5", entries[0].Meta)
}

func TestRecorderNeverFailsCaller(t *testing.T) {
	// No writer subscribed: publish fails, Record still returns.
	q := queue.NewInMemoryQueue(zerolog.Nop())
	rec := audit.NewRecorder(q, zerolog.Nop())

	rec.Record("message_sent", "id=9")
}

func TestWriterAcceptsJSONBytes(t *testing.T) {
	q := queue.NewInMemoryQueue(zerolog.Nop())
	store := newMemStore(1)
	require.NoError(t, audit.StartWriter(q, store, zerolog.Nop()))

	raw, err := json.Marshal(audit.Entry{Action: "contact_added", Meta: "+254700000001"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(audit.Topic, raw))

	entries := store.wait(t, 1)
	assert.Equal(t, "contact_added", entries[0].Action)
}

func TestWriterDiscardsMalformedPayloads(t *testing.T) {
	q := queue.NewInMemoryQueue(zerolog.Nop())
	store := newMemStore(1)
	require.NoError(t, audit.StartWriter(q, store, zerolog.Nop()))

	require.NoError(t, q.Publish(audit.Topic, []byte("not json")))
	require.NoError(t, q.Publish(audit.Topic, 42))

	// Nothing should have been stored.
	time.Sleep(50 * time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.entries)
}
