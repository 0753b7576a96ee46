package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/weftlabs/weft/pkg/metrics"
	"github.com/weftlabs/weft/pkg/sessionize/model"
	"go.uber.org/zap"
)

const outputBufferSize = 1024
const diagnosticsBufferSize = 256

// EngineParams is the engine's configuration surface. InactivityThreshold is
// in the same logical milliseconds as message timestamps. EpochGranularity is
// the wall-clock interval between closure evaluations; zero disables the
// internal ticker so the caller drives epochs itself via EvaluateEpoch,
// e.g. on a volume quantum.
type EngineParams struct {
	PartitionCount      int
	InactivityThreshold int64
	MaxSessionMessages  int
	EpochGranularity    time.Duration
}

// Engine is the online sessionization pipeline: messages are routed to shard
// workers that exclusively own their slice of the session-id space, and a
// periodic epoch evaluation closes sessions the frontier has proven inactive.
// Ingestion never blocks on closure; the progress tracker is the only
// synchronization point shared across shards.
type Engine struct {
	params      EngineParams
	partitioner *Partitioner
	tracker     *ProgressTracker
	closedCache *ClosedSessionCache
	workers     []*shardWorker
	out         chan model.ClosedSession
	diagnostics chan model.Diagnostic
	metrics     *metrics.Metrics
	logger      *zap.Logger

	epochMu sync.Mutex
	epoch   int64

	tickerStop chan struct{}
	tickerWg   sync.WaitGroup
	workerWg   sync.WaitGroup
}

type shardWorker struct {
	shard  int
	inbox  chan shardEvent
	store  *SessionStore
	closer *SessionCloser
}

type shardEvent struct {
	message  *model.Message
	evaluate *evaluateCommand
	drain    *sync.WaitGroup
	discard  *sync.WaitGroup
}

type evaluateCommand struct {
	frontier      int64
	frontierKnown bool
	epoch         int64
	done          *sync.WaitGroup
}

func NewEngine(
	params EngineParams,
	closedCache *ClosedSessionCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Engine, error) {
	partitioner, err := NewPartitioner(params.PartitionCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create partitioner: %w", err)
	}
	engine := &Engine{
		params:      params,
		partitioner: partitioner,
		tracker:     NewProgressTracker(logger),
		closedCache: closedCache,
		out:         make(chan model.ClosedSession, outputBufferSize),
		diagnostics: make(chan model.Diagnostic, diagnosticsBufferSize),
		metrics:     m,
		logger:      logger,
		tickerStop:  make(chan struct{}),
	}
	engine.workers = make([]*shardWorker, params.PartitionCount)
	for shard := 0; shard < params.PartitionCount; shard++ {
		store := NewSessionStore(logger)
		engine.workers[shard] = &shardWorker{
			shard:  shard,
			inbox:  make(chan shardEvent, outputBufferSize),
			store:  store,
			closer: NewSessionCloser(store, closedCache, params.MaxSessionMessages, logger),
		}
	}
	return engine, nil
}

// Start launches one goroutine per shard and, when EpochGranularity is set,
// the epoch ticker.
func (e *Engine) Start() {
	for _, worker := range e.workers {
		e.workerWg.Add(1)
		go e.runWorker(worker)
	}
	if e.params.EpochGranularity > 0 {
		e.tickerWg.Add(1)
		go e.runTicker()
	}
	e.logger.Info("Sessionization engine started",
		zap.Int("partition_count", e.params.PartitionCount),
		zap.Int64("inactivity_threshold", e.params.InactivityThreshold),
	)
}

// Ingest routes the message to the shard worker owning its session id.
func (e *Engine) Ingest(msg model.Message) {
	shard := e.partitioner.Route(msg.SessionID)
	e.workers[shard].inbox <- shardEvent{message: &msg}
}

// RegisterSource declares an input source the frontier must wait for.
func (e *Engine) RegisterSource(sourceID string) {
	e.tracker.RegisterSource(sourceID)
}

// Advance records a source's promise to never emit a timestamp below the
// given bound.
func (e *Engine) Advance(sourceID string, newLowerBound int64) {
	e.tracker.Advance(sourceID, newLowerBound)
}

// Output streams closed sessions. The channel is closed by Shutdown once all
// workers have stopped.
func (e *Engine) Output() <-chan model.ClosedSession {
	return e.out
}

// Diagnostics streams non-fatal conditions such as late arrivals. Best
// effort: if the consumer falls behind, diagnostics are dropped after being
// counted and logged.
func (e *Engine) Diagnostics() <-chan model.Diagnostic {
	return e.diagnostics
}

// EvaluateEpoch runs one closure pass across all shards against the current
// frontier and blocks until every shard has finished it. Called by the
// internal ticker, or directly by callers that drive epochs by volume.
func (e *Engine) EvaluateEpoch() {
	e.epochMu.Lock()
	e.epoch++
	epoch := e.epoch
	e.epochMu.Unlock()

	frontier, frontierKnown := e.tracker.Frontier()
	if frontierKnown {
		e.metrics.Frontier.Set(float64(frontier))
	}
	e.metrics.EpochsEvaluated.Inc()

	var done sync.WaitGroup
	done.Add(len(e.workers))
	cmd := &evaluateCommand{
		frontier:      frontier,
		frontierKnown: frontierKnown,
		epoch:         epoch,
		done:          &done,
	}
	for _, worker := range e.workers {
		worker.inbox <- shardEvent{evaluate: cmd}
	}
	done.Wait()
}

// Shutdown stops the engine. With drain set, still-open sessions are flushed
// downstream tagged incomplete; otherwise they are discarded. Either way the
// choice is logged, never silent. Output and Diagnostics are closed once all
// workers have stopped.
func (e *Engine) Shutdown(drain bool) {
	if e.params.EpochGranularity > 0 {
		close(e.tickerStop)
		// A tick may be mid-evaluation; its evaluate commands must land on
		// open inboxes, so wait for the ticker goroutine to exit first.
		e.tickerWg.Wait()
	}
	var done sync.WaitGroup
	done.Add(len(e.workers))
	for _, worker := range e.workers {
		if drain {
			worker.inbox <- shardEvent{drain: &done}
		} else {
			worker.inbox <- shardEvent{discard: &done}
		}
	}
	done.Wait()
	for _, worker := range e.workers {
		close(worker.inbox)
	}
	e.workerWg.Wait()
	close(e.out)
	close(e.diagnostics)
	e.logger.Info("Sessionization engine stopped")
}

func (e *Engine) runTicker() {
	defer e.tickerWg.Done()
	ticker := time.NewTicker(e.params.EpochGranularity)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.EvaluateEpoch()
		case <-e.tickerStop:
			return
		}
	}
}

func (e *Engine) runWorker(w *shardWorker) {
	defer e.workerWg.Done()
	for event := range w.inbox {
		switch {
		case event.message != nil:
			e.ingestOnWorker(w, *event.message)
		case event.evaluate != nil:
			e.evaluateOnWorker(w, event.evaluate)
		case event.drain != nil:
			e.drainOnWorker(w, event.drain)
		case event.discard != nil:
			e.discardOnWorker(w, event.discard)
		}
	}
}

func (e *Engine) ingestOnWorker(w *shardWorker, msg model.Message) {
	if _, open := w.store.Get(msg.SessionID); !open {
		if closeTime, closed := e.closedCache.WasClosed(msg.SessionID); closed {
			e.metrics.LateArrivals.Inc()
			e.reportDiagnostic(model.Diagnostic{
				Kind:      model.LateArrivalDiagnostic,
				SessionID: msg.SessionID,
				Timestamp: msg.Timestamp,
				Detail:    fmt.Sprintf("session already closed at %d", closeTime),
			})
			return
		}
	}
	w.store.Ingest(msg)
	e.metrics.MessagesIngested.Inc()
}

func (e *Engine) evaluateOnWorker(w *shardWorker, cmd *evaluateCommand) {
	defer cmd.done.Done()
	closed := w.closer.CloseExpired(
		cmd.frontier,
		cmd.frontierKnown,
		e.params.InactivityThreshold,
		cmd.epoch,
	)
	e.emitClosed(closed)

	shardLabel := metrics.ShardLabel(w.shard)
	e.metrics.OpenSessions.WithLabelValues(shardLabel).Set(float64(w.store.Len()))
	if oldest, ok := w.store.OldestLatestTimestamp(); ok && cmd.frontierKnown {
		e.metrics.OldestOpenAge.WithLabelValues(shardLabel).Set(float64(cmd.frontier - oldest))
	} else {
		e.metrics.OldestOpenAge.WithLabelValues(shardLabel).Set(0)
	}
}

func (e *Engine) drainOnWorker(w *shardWorker, done *sync.WaitGroup) {
	defer done.Done()
	e.epochMu.Lock()
	epoch := e.epoch
	e.epochMu.Unlock()
	closed := w.closer.Drain(epoch)
	if len(closed) > 0 {
		e.logger.Info("Flushed open sessions as incomplete on drain",
			zap.Int("shard", w.shard),
			zap.Int("session_count", len(closed)),
		)
	}
	e.emitClosed(closed)
}

func (e *Engine) discardOnWorker(w *shardWorker, done *sync.WaitGroup) {
	defer done.Done()
	dropped := len(w.store.EvictAll())
	if dropped > 0 {
		e.logger.Info("Discarding open sessions on shutdown",
			zap.Int("shard", w.shard),
			zap.Int("session_count", dropped),
		)
	}
}

func (e *Engine) emitClosed(closed []model.ClosedSession) {
	for _, session := range closed {
		if !session.Complete {
			e.metrics.ForcedClosures.Inc()
			e.reportDiagnostic(model.Diagnostic{
				Kind:      model.ForcedClosureDiagnostic,
				SessionID: session.SessionID,
				Timestamp: session.LatestTimestamp,
			})
		}
		e.metrics.ClosedSessions.WithLabelValues(fmt.Sprintf("%t", session.Complete)).Inc()
		e.out <- session
	}
}

func (e *Engine) reportDiagnostic(diagnostic model.Diagnostic) {
	select {
	case e.diagnostics <- diagnostic:
	default:
		e.logger.Warn("Diagnostics channel full, dropping diagnostic",
			zap.String("kind", string(diagnostic.Kind)),
			zap.String("session_id", diagnostic.SessionID),
		)
	}
}
