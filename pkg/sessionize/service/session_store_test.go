package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weftlabs/weft/pkg/sessionize/model"
	"go.uber.org/zap"
)

func TestSessionStore_Ingest(t *testing.T) {
	t.Run("Creates a session on first message", func(t *testing.T) {
		store := NewSessionStore(zap.NewNop())
		session, created := store.Ingest(model.Message{SessionID: "A", Timestamp: 1000})
		assert.True(t, created)
		assert.Equal(t, "A", session.SessionID)
		assert.Equal(t, int64(1000), session.EarliestTimestamp)
		assert.Equal(t, int64(1000), session.LatestTimestamp)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Appends to an existing session", func(t *testing.T) {
		store := NewSessionStore(zap.NewNop())
		store.Ingest(model.Message{SessionID: "A", Timestamp: 1000})
		session, created := store.Ingest(model.Message{SessionID: "A", Timestamp: 2100})
		assert.False(t, created)
		assert.Len(t, session.Messages, 2)
		assert.Equal(t, int64(2100), session.LatestTimestamp)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Latest timestamp is a max under out of order arrival", func(t *testing.T) {
		store := NewSessionStore(zap.NewNop())
		store.Ingest(model.Message{SessionID: "A", Timestamp: 5000})
		session, _ := store.Ingest(model.Message{SessionID: "A", Timestamp: 1000})
		assert.Equal(t, int64(5000), session.LatestTimestamp)
		assert.Equal(t, int64(1000), session.EarliestTimestamp)
	})
}

func TestSessionStore_Evict(t *testing.T) {
	t.Run("Evicting transfers the session out of the store", func(t *testing.T) {
		store := NewSessionStore(zap.NewNop())
		store.Ingest(model.Message{SessionID: "A", Timestamp: 1000})
		session, ok := store.Evict("A")
		assert.True(t, ok)
		assert.Equal(t, "A", session.SessionID)
		assert.Equal(t, 0, store.Len())
		_, ok = store.Get("A")
		assert.False(t, ok)
	})

	t.Run("Evicting an unknown id is a no-op", func(t *testing.T) {
		store := NewSessionStore(zap.NewNop())
		_, ok := store.Evict("missing")
		assert.False(t, ok)
	})

	t.Run("EvictAll empties the store", func(t *testing.T) {
		store := NewSessionStore(zap.NewNop())
		store.Ingest(model.Message{SessionID: "A", Timestamp: 1000})
		store.Ingest(model.Message{SessionID: "B", Timestamp: 2000})
		evicted := store.EvictAll()
		assert.Len(t, evicted, 2)
		assert.Equal(t, 0, store.Len())
	})
}

func TestSessionStore_OldestLatestTimestamp(t *testing.T) {
	t.Run("Reports the least recently active session", func(t *testing.T) {
		store := NewSessionStore(zap.NewNop())
		_, ok := store.OldestLatestTimestamp()
		assert.False(t, ok)

		store.Ingest(model.Message{SessionID: "A", Timestamp: 5000})
		store.Ingest(model.Message{SessionID: "B", Timestamp: 2000})
		oldest, ok := store.OldestLatestTimestamp()
		assert.True(t, ok)
		assert.Equal(t, int64(2000), oldest)
	})
}
