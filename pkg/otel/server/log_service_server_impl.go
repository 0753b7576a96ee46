package server

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	sessionModel "github.com/weftlabs/weft/pkg/sessionize/model"
	spanModel "github.com/weftlabs/weft/pkg/span/model"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	v1 "go.opentelemetry.io/proto/otlp/logs/v1"
	"go.uber.org/zap"
)

const spanPathAttribute = "weft.span.path"
const spanCountsAttribute = "weft.span.counts"

// MessageIngestor is the engine-facing surface the adapter feeds: message
// ingestion plus per-source watermark advancement.
type MessageIngestor interface {
	Ingest(msg sessionModel.Message)
	RegisterSource(sourceID string)
	Advance(sourceID string, newLowerBound int64)
}

// LogServiceServerImpl adapts OTLP log export batches into engine messages.
// The trace id groups records into a session, the scope name identifies the
// emitting service, and the span position path rides in record attributes.
// OTLP carries no watermark, so the adapter derives one per source: the
// highest timestamp seen minus a configured reordering slack.
type LogServiceServerImpl struct {
	protoLogs.UnimplementedLogsServiceServer
	ingestor     MessageIngestor
	reorderSlack int64
	logger       *zap.Logger

	mu      sync.Mutex
	maxSeen map[string]int64
}

func NewLogServiceServerImpl(
	ingestor MessageIngestor,
	reorderSlack int64,
	logger *zap.Logger,
) *LogServiceServerImpl {
	logger.Info("Creating new LogServiceServerImpl")
	return &LogServiceServerImpl{
		ingestor:     ingestor,
		reorderSlack: reorderSlack,
		logger:       logger,
		maxSeen:      make(map[string]int64),
	}
}

func (lss *LogServiceServerImpl) Export(
	ctx context.Context,
	req *protoLogs.ExportLogsServiceRequest,
) (*protoLogs.ExportLogsServiceResponse, error) {
	for _, resourceLogs := range req.ResourceLogs {
		for _, scopeLog := range resourceLogs.ScopeLogs {
			serviceName := scopeLog.Scope.GetName()
			for _, record := range scopeLog.LogRecords {
				msg, err := typeMessage(record, serviceName)
				if err != nil {
					lss.logger.Warn("Skipping log record with unparsable span path",
						zap.String("service", serviceName),
						zap.Error(err),
					)
					continue
				}
				lss.ingestor.Ingest(msg)
				lss.advanceWatermark(serviceName, msg.Timestamp)
			}
		}
	}
	return &protoLogs.ExportLogsServiceResponse{}, nil
}

func (lss *LogServiceServerImpl) advanceWatermark(sourceID string, timestamp int64) {
	lss.mu.Lock()
	defer lss.mu.Unlock()
	if _, ok := lss.maxSeen[sourceID]; !ok {
		lss.ingestor.RegisterSource(sourceID)
	}
	if timestamp > lss.maxSeen[sourceID] {
		lss.maxSeen[sourceID] = timestamp
	}
	lss.ingestor.Advance(sourceID, lss.maxSeen[sourceID]-lss.reorderSlack)
}

func typeMessage(record *v1.LogRecord, serviceName string) (sessionModel.Message, error) {
	msg := sessionModel.Message{
		SessionID: hex.EncodeToString(record.TraceId),
		Timestamp: int64(record.TimeUnixNano) / 1_000_000,
		Service:   serviceName,
		Payload:   record.Body.GetStringValue(),
	}
	var pathValue, countsValue string
	for _, attribute := range record.Attributes {
		switch attribute.Key {
		case spanPathAttribute:
			pathValue = attribute.Value.GetStringValue()
		case spanCountsAttribute:
			countsValue = attribute.Value.GetStringValue()
		}
	}
	if pathValue == "" {
		return msg, nil
	}
	spanID, err := parseSpanPath(pathValue, countsValue)
	if err != nil {
		return sessionModel.Message{}, err
	}
	msg.SpanID = spanID
	return msg, nil
}

// parseSpanPath reads a dotted index path ("1.0") plus an optional parallel
// dotted sibling-count path ("10.1") into a position path.
func parseSpanPath(path string, counts string) (spanModel.SpanID, error) {
	indexParts := strings.Split(path, ".")
	var countParts []string
	if counts != "" {
		countParts = strings.Split(counts, ".")
	}
	spanID := make(spanModel.SpanID, len(indexParts))
	for i, part := range indexParts {
		index, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, err
		}
		spanID[i].Index = uint32(index)
		if i < len(countParts) {
			count, err := strconv.ParseUint(countParts[i], 10, 32)
			if err != nil {
				return nil, err
			}
			spanID[i].Count = uint32(count)
		}
	}
	return spanID, nil
}
