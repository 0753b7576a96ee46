package service

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	analyticsService "github.com/weftlabs/weft/pkg/analytics/service"
	"github.com/weftlabs/weft/pkg/event_bus"
	"github.com/weftlabs/weft/pkg/metrics"
	"github.com/weftlabs/weft/pkg/pipeline/model"
	sessionizeService "github.com/weftlabs/weft/pkg/sessionize/service"
	treeService "github.com/weftlabs/weft/pkg/tree/service"
	"github.com/weftlabs/weft/pkg/write_buffer"
	"go.uber.org/zap"
)

const ReconstructedSessionsTopic = "reconstructed_sessions"
const EpochBatchesTopic = "epoch_batches"

// ReconstructionPipeline consumes closed sessions from the engine, rebuilds
// each session's trace tree, runs the analytics operators, and fans the
// results out over the event bus both item-at-a-time and as per-epoch
// batches. Independent consumers (the analytics logger, the optional
// Elasticsearch sink) subscribe to the same topics.
type ReconstructionPipeline struct {
	engine       *sessionizeService.Engine
	treeBuilder  *treeService.TreeBuilderService
	analytics    *analyticsService.AnalyticsService
	epochStats   *analyticsService.EpochStatsService
	sink         write_buffer.DatabaseWriteBuffer[model.TraceDocument]
	metrics      *metrics.Metrics
	logger       *zap.Logger
	consumerDone chan struct{}
}

// NewReconstructionPipeline wires the post-closure stages. sink may be nil,
// in which case reconstructed traces are not persisted.
func NewReconstructionPipeline(
	engine *sessionizeService.Engine,
	treeBuilder *treeService.TreeBuilderService,
	analytics *analyticsService.AnalyticsService,
	epochStats *analyticsService.EpochStatsService,
	sink write_buffer.DatabaseWriteBuffer[model.TraceDocument],
	m *metrics.Metrics,
	logger *zap.Logger,
) *ReconstructionPipeline {
	return &ReconstructionPipeline{
		engine:       engine,
		treeBuilder:  treeBuilder,
		analytics:    analytics,
		epochStats:   epochStats,
		sink:         sink,
		metrics:      m,
		logger:       logger,
		consumerDone: make(chan struct{}),
	}
}

// Start subscribes the downstream consumers and begins draining the engine's
// output. The returned cleanup blocks until the engine output is exhausted
// (i.e. after Engine.Shutdown) and flushes the sink.
func (rp *ReconstructionPipeline) Start(eventBus EventBus.Bus) (func(), error) {
	sessions := event_bus.NewTopic[model.ReconstructedSession](ReconstructedSessionsTopic, eventBus, rp.logger)
	batches := event_bus.NewTopic[model.EpochBatch](EpochBatchesTopic, eventBus, rp.logger)

	if err := rp.startAnalyticsLogger(sessions, batches); err != nil {
		return nil, fmt.Errorf("failed to start analytics logger: %w", err)
	}
	if rp.sink != nil {
		if err := rp.startTraceSink(sessions); err != nil {
			return nil, fmt.Errorf("failed to start trace sink: %w", err)
		}
	}

	go rp.consumeDiagnostics()
	go rp.consumeClosedSessions(sessions, batches)

	cleanup := func() {
		<-rp.consumerDone
		if rp.sink != nil {
			if err := rp.sink.Flush(); err != nil {
				rp.logger.Error("Failed to flush trace sink on shutdown", zap.Error(err))
			}
		}
	}
	return cleanup, nil
}

func (rp *ReconstructionPipeline) consumeClosedSessions(
	sessions event_bus.Topic[model.ReconstructedSession],
	batches event_bus.Topic[model.EpochBatch],
) {
	defer close(rp.consumerDone)
	var batch []model.ReconstructedSession
	var batchEpoch int64

	flushBatch := func() {
		if len(batch) == 0 {
			return
		}
		stats := rp.epochStats.FlushEpoch(batchEpoch)
		err := batches.Publish(model.EpochBatch{
			Epoch:    batchEpoch,
			Sessions: batch,
			Stats:    stats,
		})
		if err != nil {
			rp.logger.Error("Failed to publish epoch batch", zap.Error(err))
		}
		batch = nil
	}

	for closed := range rp.engine.Output() {
		if closed.CloseEpoch != batchEpoch {
			flushBatch()
			batchEpoch = closed.CloseEpoch
		}

		tree, diagnostics := rp.treeBuilder.BuildTree(closed)
		for _, diagnostic := range diagnostics {
			rp.metrics.InvalidSpanIds.Inc()
			rp.logger.Warn("Excluded message with invalid span id from tree",
				zap.String("session_id", diagnostic.SessionID),
				zap.Int64("timestamp", diagnostic.Timestamp),
				zap.String("detail", diagnostic.Detail),
			)
		}

		reconstructed := model.ReconstructedSession{
			Session:   closed,
			Tree:      tree,
			Analytics: rp.analytics.Analyze(closed, tree),
		}
		if fragments := rp.epochStats.Record(closed.SessionID, reconstructed.Analytics.TreeShape); fragments > 1 {
			rp.metrics.SessionsFragments.Inc()
		}

		if err := sessions.Publish(reconstructed); err != nil {
			rp.logger.Error("Failed to publish reconstructed session", zap.Error(err))
		}
		batch = append(batch, reconstructed)
	}
	flushBatch()
}

func (rp *ReconstructionPipeline) consumeDiagnostics() {
	for diagnostic := range rp.engine.Diagnostics() {
		rp.logger.Warn("Engine diagnostic",
			zap.String("kind", string(diagnostic.Kind)),
			zap.String("session_id", diagnostic.SessionID),
			zap.Int64("timestamp", diagnostic.Timestamp),
			zap.String("detail", diagnostic.Detail),
		)
	}
}

func (rp *ReconstructionPipeline) startAnalyticsLogger(
	sessions event_bus.Topic[model.ReconstructedSession],
	batches event_bus.Topic[model.EpochBatch],
) error {
	err := sessions.Subscribe(
		func(input model.ReconstructedSession) error {
			rp.logger.Info("Reconstructed session",
				zap.String("session_id", input.Analytics.SessionID),
				zap.Bool("complete", input.Analytics.Complete),
				zap.Int("span_count", input.Analytics.SpanCount),
				zap.Int("root_count", input.Analytics.RootCount),
				zap.Int64("duration", input.Analytics.Duration),
				zap.Int("depth", input.Analytics.Depth),
				zap.Ints("tree_shape", input.Analytics.TreeShape),
				zap.Any("service_dependencies", input.Analytics.ServiceDependencies),
			)
			return nil
		},
		false,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to reconstructed sessions: %w", err)
	}

	err = batches.Subscribe(
		func(input model.EpochBatch) error {
			rp.logger.Info("Epoch batch",
				zap.Int64("epoch", input.Epoch),
				zap.Int("closed_sessions", input.Stats.ClosedSessions),
				zap.Any("top_shapes", input.Stats.TopShapes),
				zap.Any("fragment_histogram", input.Stats.FragmentHistogram),
			)
			return nil
		},
		false,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to epoch batches: %w", err)
	}
	return nil
}

func (rp *ReconstructionPipeline) startTraceSink(sessions event_bus.Topic[model.ReconstructedSession]) error {
	err := sessions.Subscribe(
		func(input model.ReconstructedSession) error {
			rp.sink.WriteToBuffer([]model.TraceDocument{model.NewTraceDocument(input)})
			return nil
		},
		true,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe trace sink: %w", err)
	}
	return nil
}
