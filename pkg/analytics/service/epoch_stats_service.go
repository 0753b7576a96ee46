package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/weftlabs/weft/pkg/analytics/model"
)

// EpochStatsService accumulates per-epoch aggregates over closed sessions:
// the frequency of canonical tree shapes (reported top-k per epoch) and the
// cumulative fragment count per session id. Owned by the pipeline goroutine,
// so it needs no locking.
type EpochStatsService struct {
	topK            int
	shapeCounts     map[string]*model.ShapeCount
	closedThisEpoch int
	fragmentCounts  map[string]int
}

func NewEpochStatsService(topK int) *EpochStatsService {
	return &EpochStatsService{
		topK:           topK,
		shapeCounts:    make(map[string]*model.ShapeCount),
		fragmentCounts: make(map[string]int),
	}
}

// Record accounts one closed session and returns how many times its session
// id has been emitted so far; a value above one means the session fragmented.
func (ess *EpochStatsService) Record(sessionID string, shape []int) int {
	key := shapeKey(shape)
	entry, ok := ess.shapeCounts[key]
	if !ok {
		entry = &model.ShapeCount{Shape: shape}
		ess.shapeCounts[key] = entry
	}
	entry.Count++
	ess.closedThisEpoch++

	ess.fragmentCounts[sessionID]++
	return ess.fragmentCounts[sessionID]
}

// FlushEpoch emits the aggregates for the finished epoch and resets the
// per-epoch shape counts. Fragment counts accumulate across epochs because a
// fragment of a session can surface arbitrarily many epochs later.
func (ess *EpochStatsService) FlushEpoch(epoch int64) model.EpochStats {
	topShapes := make([]model.ShapeCount, 0, len(ess.shapeCounts))
	for _, entry := range ess.shapeCounts {
		topShapes = append(topShapes, *entry)
	}
	sort.Slice(topShapes, func(i, j int) bool {
		if topShapes[i].Count != topShapes[j].Count {
			return topShapes[i].Count > topShapes[j].Count
		}
		return shapeKey(topShapes[i].Shape) < shapeKey(topShapes[j].Shape)
	})
	if ess.topK > 0 && len(topShapes) > ess.topK {
		topShapes = topShapes[:ess.topK]
	}

	histogram := make(map[int]int)
	for _, fragments := range ess.fragmentCounts {
		histogram[fragments]++
	}
	buckets := make([]model.FragmentBucket, 0, len(histogram))
	for fragments, sessions := range histogram {
		buckets = append(buckets, model.FragmentBucket{Fragments: fragments, Sessions: sessions})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Fragments < buckets[j].Fragments
	})

	stats := model.EpochStats{
		Epoch:             epoch,
		ClosedSessions:    ess.closedThisEpoch,
		TopShapes:         topShapes,
		FragmentHistogram: buckets,
	}
	ess.shapeCounts = make(map[string]*model.ShapeCount)
	ess.closedThisEpoch = 0
	return stats
}

func shapeKey(shape []int) string {
	parts := make([]string, len(shape))
	for i, degree := range shape {
		parts[i] = fmt.Sprintf("%d", degree)
	}
	return strings.Join(parts, ",")
}
