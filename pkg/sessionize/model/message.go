package model

import (
	spanModel "github.com/weftlabs/weft/pkg/span/model"
)

// Message is one logged event emitted by an instrumented service. Timestamps
// are logical milliseconds, monotonically meaningful within a session. SpanID
// is nil for messages that do not delimit span boundaries; such messages still
// contribute to session timing but are not tree nodes. Payload is opaque to
// the engine.
type Message struct {
	SessionID string           `json:"session_id"`
	Timestamp int64            `json:"timestamp"`
	SpanID    spanModel.SpanID `json:"span_id,omitempty"`
	Service   string           `json:"service"`
	Payload   string           `json:"payload,omitempty"`
}

func (m Message) HasSpanID() bool {
	return len(m.SpanID) > 0
}
