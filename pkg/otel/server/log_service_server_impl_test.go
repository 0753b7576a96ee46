package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sessionModel "github.com/weftlabs/weft/pkg/sessionize/model"
	spanModel "github.com/weftlabs/weft/pkg/span/model"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	v1common "go.opentelemetry.io/proto/otlp/common/v1"
	v1 "go.opentelemetry.io/proto/otlp/logs/v1"
	"go.uber.org/zap"
)

type capturingIngestor struct {
	messages   []sessionModel.Message
	registered []string
	advances   map[string]int64
}

func newCapturingIngestor() *capturingIngestor {
	return &capturingIngestor{advances: make(map[string]int64)}
}

func (ci *capturingIngestor) Ingest(msg sessionModel.Message) {
	ci.messages = append(ci.messages, msg)
}

func (ci *capturingIngestor) RegisterSource(sourceID string) {
	ci.registered = append(ci.registered, sourceID)
}

func (ci *capturingIngestor) Advance(sourceID string, newLowerBound int64) {
	ci.advances[sourceID] = newLowerBound
}

func stringAttribute(key string, value string) *v1common.KeyValue {
	return &v1common.KeyValue{
		Key: key,
		Value: &v1common.AnyValue{
			Value: &v1common.AnyValue_StringValue{StringValue: value},
		},
	}
}

func exportRequest(serviceName string, records ...*v1.LogRecord) *protoLogs.ExportLogsServiceRequest {
	return &protoLogs.ExportLogsServiceRequest{
		ResourceLogs: []*v1.ResourceLogs{
			{
				ScopeLogs: []*v1.ScopeLogs{
					{
						Scope:      &v1common.InstrumentationScope{Name: serviceName},
						LogRecords: records,
					},
				},
			},
		},
	}
}

func TestLogServiceServerImpl_Export(t *testing.T) {
	t.Run("Translates log records into engine messages", func(t *testing.T) {
		ingestor := newCapturingIngestor()
		server := NewLogServiceServerImpl(ingestor, 1000, zap.NewNop())

		_, err := server.Export(context.Background(), exportRequest("FrontendY",
			&v1.LogRecord{
				TraceId:      []byte{0xab, 0xcd},
				TimeUnixNano: 12_100_000_000,
				Body: &v1common.AnyValue{
					Value: &v1common.AnyValue_StringValue{StringValue: "request received"},
				},
				Attributes: []*v1common.KeyValue{
					stringAttribute("weft.span.path", "1.0"),
					stringAttribute("weft.span.counts", "2.1"),
				},
			},
		))
		assert.Nil(t, err)
		assert.Len(t, ingestor.messages, 1)

		msg := ingestor.messages[0]
		assert.Equal(t, "abcd", msg.SessionID)
		assert.Equal(t, int64(12100), msg.Timestamp)
		assert.Equal(t, "FrontendY", msg.Service)
		assert.Equal(t, "request received", msg.Payload)
		assert.Equal(t, spanModel.SpanID{{Index: 1, Count: 2}, {Index: 0, Count: 1}}, msg.SpanID)
	})

	t.Run("Records without a span path stay untracked", func(t *testing.T) {
		ingestor := newCapturingIngestor()
		server := NewLogServiceServerImpl(ingestor, 1000, zap.NewNop())

		_, err := server.Export(context.Background(), exportRequest("Gateway",
			&v1.LogRecord{TraceId: []byte{0x01}, TimeUnixNano: 5_000_000_000},
		))
		assert.Nil(t, err)
		assert.Len(t, ingestor.messages, 1)
		assert.False(t, ingestor.messages[0].HasSpanID())
	})

	t.Run("Records with an unparsable span path are skipped", func(t *testing.T) {
		ingestor := newCapturingIngestor()
		server := NewLogServiceServerImpl(ingestor, 1000, zap.NewNop())

		_, err := server.Export(context.Background(), exportRequest("Broken",
			&v1.LogRecord{
				TraceId:      []byte{0x01},
				TimeUnixNano: 5_000_000_000,
				Attributes:   []*v1common.KeyValue{stringAttribute("weft.span.path", "not-a-path")},
			},
		))
		assert.Nil(t, err)
		assert.Empty(t, ingestor.messages)
	})

	t.Run("Derives a per-source watermark behind the max timestamp", func(t *testing.T) {
		ingestor := newCapturingIngestor()
		server := NewLogServiceServerImpl(ingestor, 1000, zap.NewNop())

		_, err := server.Export(context.Background(), exportRequest("FrontendY",
			&v1.LogRecord{TraceId: []byte{0x01}, TimeUnixNano: 12_000_000_000},
			&v1.LogRecord{TraceId: []byte{0x02}, TimeUnixNano: 14_000_000_000},
			&v1.LogRecord{TraceId: []byte{0x03}, TimeUnixNano: 13_000_000_000},
		))
		assert.Nil(t, err)
		assert.Equal(t, []string{"FrontendY"}, ingestor.registered)
		assert.Equal(t, int64(13000), ingestor.advances["FrontendY"])
	})

	t.Run("Each scope advances its own source", func(t *testing.T) {
		ingestor := newCapturingIngestor()
		server := NewLogServiceServerImpl(ingestor, 0, zap.NewNop())

		_, err := server.Export(context.Background(), exportRequest("A",
			&v1.LogRecord{TraceId: []byte{0x01}, TimeUnixNano: 10_000_000_000},
		))
		assert.Nil(t, err)
		_, err = server.Export(context.Background(), exportRequest("B",
			&v1.LogRecord{TraceId: []byte{0x02}, TimeUnixNano: 20_000_000_000},
		))
		assert.Nil(t, err)

		assert.ElementsMatch(t, []string{"A", "B"}, ingestor.registered)
		assert.Equal(t, int64(10000), ingestor.advances["A"])
		assert.Equal(t, int64(20000), ingestor.advances["B"])
	})
}
