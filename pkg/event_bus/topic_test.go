package event_bus

import (
	"sync"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testPayload struct {
	SessionID string `json:"session_id"`
	SpanCount int    `json:"span_count"`
}

func TestTopic(t *testing.T) {
	t.Run("Published payloads reach subscribers typed", func(t *testing.T) {
		bus := EventBus.New()
		sessions := NewTopic[testPayload]("sessions", bus, zap.NewNop())

		var mu sync.Mutex
		var received []testPayload
		err := sessions.Subscribe(func(value testPayload) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, value)
			return nil
		}, false)
		assert.Nil(t, err)

		assert.Nil(t, sessions.Publish(testPayload{SessionID: "B", SpanCount: 3}))
		bus.WaitAsync()

		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, received, 1)
		assert.Equal(t, "B", received[0].SessionID)
		assert.Equal(t, 3, received[0].SpanCount)
	})

	t.Run("Independent subscribers each receive the payload", func(t *testing.T) {
		bus := EventBus.New()
		sessions := NewTopic[testPayload]("sessions", bus, zap.NewNop())

		var mu sync.Mutex
		counts := make(map[string]int)
		for _, name := range []string{"logger", "sink"} {
			subscriber := name
			err := sessions.Subscribe(func(value testPayload) error {
				mu.Lock()
				defer mu.Unlock()
				counts[subscriber]++
				return nil
			}, false)
			assert.Nil(t, err)
		}

		assert.Nil(t, sessions.Publish(testPayload{SessionID: "A"}))
		bus.WaitAsync()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, counts["logger"])
		assert.Equal(t, 1, counts["sink"])
	})

	t.Run("Topics on the same bus stay separate", func(t *testing.T) {
		bus := EventBus.New()
		sessions := NewTopic[testPayload]("sessions", bus, zap.NewNop())
		batches := NewTopic[testPayload]("batches", bus, zap.NewNop())

		var mu sync.Mutex
		delivered := 0
		err := batches.Subscribe(func(value testPayload) error {
			mu.Lock()
			defer mu.Unlock()
			delivered++
			return nil
		}, false)
		assert.Nil(t, err)

		assert.Nil(t, sessions.Publish(testPayload{SessionID: "A"}))
		bus.WaitAsync()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 0, delivered)
	})

	t.Run("Handler errors do not break the subscription", func(t *testing.T) {
		bus := EventBus.New()
		sessions := NewTopic[testPayload]("sessions", bus, zap.NewNop())

		var mu sync.Mutex
		delivered := 0
		err := sessions.Subscribe(func(value testPayload) error {
			mu.Lock()
			defer mu.Unlock()
			delivered++
			return assert.AnError
		}, false)
		assert.Nil(t, err)

		assert.Nil(t, sessions.Publish(testPayload{SessionID: "A"}))
		assert.Nil(t, sessions.Publish(testPayload{SessionID: "B"}))
		bus.WaitAsync()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, delivered)
	})
}
