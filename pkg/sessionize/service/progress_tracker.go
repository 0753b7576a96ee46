package service

import (
	"sync"

	"go.uber.org/zap"
)

// ProgressTracker owns the frontier: the system-wide lower bound below which
// no future message timestamp can arrive. Each input source reports a
// non-decreasing lower bound on the timestamps it will still emit; the
// frontier is the minimum across all registered sources. A registered source
// that has not yet reported pins the frontier at negative infinity, trading
// liveness for correctness.
//
// This is the only structure shared across shard workers, so it carries its
// own lock; everything else in the pipeline is partition-exclusive.
type ProgressTracker struct {
	mu     sync.Mutex
	bounds map[string]*int64
	logger *zap.Logger
}

func NewProgressTracker(logger *zap.Logger) *ProgressTracker {
	return &ProgressTracker{
		bounds: make(map[string]*int64),
		logger: logger,
	}
}

// RegisterSource declares an input source whose bound must be awaited before
// the frontier may advance.
func (pt *ProgressTracker) RegisterSource(sourceID string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if _, ok := pt.bounds[sourceID]; !ok {
		pt.bounds[sourceID] = nil
	}
}

// Advance records that the source will never again emit a timestamp below
// newLowerBound. Regressions are ignored so the frontier stays monotone even
// if a source misreports.
func (pt *ProgressTracker) Advance(sourceID string, newLowerBound int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	current, ok := pt.bounds[sourceID]
	if ok && current != nil && *current >= newLowerBound {
		if *current > newLowerBound {
			pt.logger.Warn("Ignoring regressing watermark for source",
				zap.String("source_id", sourceID),
				zap.Int64("current", *current),
				zap.Int64("reported", newLowerBound),
			)
		}
		return
	}
	bound := newLowerBound
	pt.bounds[sourceID] = &bound
}

// Frontier returns the minimum reported bound across all sources. The second
// return value is false while any source is unreported (or no source exists),
// meaning the frontier is still at negative infinity and no session may be
// declared closed.
func (pt *ProgressTracker) Frontier() (int64, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if len(pt.bounds) == 0 {
		return 0, false
	}
	var frontier int64
	first := true
	for _, bound := range pt.bounds {
		if bound == nil {
			return 0, false
		}
		if first || *bound < frontier {
			frontier = *bound
			first = false
		}
	}
	return frontier, true
}
