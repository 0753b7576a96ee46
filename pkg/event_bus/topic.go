package event_bus

import (
	"encoding/json"
	"fmt"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// Topic is a typed view of one event-bus topic. Values cross the bus as JSON
// so subscribers stay decoupled from publisher-side types. Both ends of a
// topic come from the same constructor, which pins the topic name and its
// payload type in one place.
type Topic[T any] interface {
	Publish(value T) error
	Subscribe(handler func(value T) error, transactional bool) error
}

type topic[T any] struct {
	name     string
	eventBus EventBus.Bus
	logger   *zap.Logger
}

func NewTopic[T any](name string, eventBus EventBus.Bus, logger *zap.Logger) Topic[T] {
	return &topic[T]{
		name:     name,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (tp *topic[T]) Publish(value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for topic %s: %w", tp.name, err)
	}
	tp.eventBus.Publish(tp.name, string(payload))
	return nil
}

// Subscribe registers an asynchronous handler. Decode and handler failures are
// logged rather than returned: a bad payload must not take the subscription
// down with it.
func (tp *topic[T]) Subscribe(handler func(value T) error, transactional bool) error {
	err := tp.eventBus.SubscribeAsync(
		tp.name,
		func(payload string) {
			var value T
			if err := json.Unmarshal([]byte(payload), &value); err != nil {
				tp.logger.Error("Failed to unmarshal payload from topic",
					zap.String("topic", tp.name),
					zap.Error(err),
				)
				return
			}
			if err := handler(value); err != nil {
				tp.logger.Error("Failed to handle payload from topic",
					zap.String("topic", tp.name),
					zap.Error(err),
				)
			}
		},
		transactional,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", tp.name, err)
	}
	return nil
}
