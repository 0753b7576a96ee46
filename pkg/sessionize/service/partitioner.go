package service

import (
	"fmt"
	"hash/fnv"
)

// Partitioner routes session ids to shard workers. The hash must be stable
// across process restarts so re-delivered messages for a previously seen
// session always land on the shard that owns its state; FNV-1a satisfies that
// where the runtime's randomized map hash would not.
type Partitioner struct {
	partitionCount int
}

func NewPartitioner(partitionCount int) (*Partitioner, error) {
	if partitionCount <= 0 {
		return nil, fmt.Errorf("partition count must be positive, got %d", partitionCount)
	}
	return &Partitioner{partitionCount: partitionCount}, nil
}

func (p *Partitioner) Route(sessionID string) int {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(sessionID))
	return int(hasher.Sum64() % uint64(p.partitionCount))
}

func (p *Partitioner) PartitionCount() int {
	return p.partitionCount
}
