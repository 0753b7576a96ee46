package service

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// ClosedSessionCache remembers recently closed session ids so that late
// arrivals can be told apart from genuinely new sessions. Backed by ristretto,
// so its memory is cost-bounded: very old entries age out, in which case a
// late message simply opens a fresh session that the closer retires on the
// next evaluation.
type ClosedSessionCache struct {
	cache *ristretto.Cache
}

func NewClosedSessionCache() (*ClosedSessionCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 20,
		MaxCost:     1 << 17,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create closed session cache: %w", err)
	}
	return &ClosedSessionCache{cache: cache}, nil
}

func (csc *ClosedSessionCache) MarkClosed(sessionID string, closeTime int64) {
	csc.cache.Set(sessionID, closeTime, 1)
}

func (csc *ClosedSessionCache) WasClosed(sessionID string) (int64, bool) {
	value, found := csc.cache.Get(sessionID)
	if !found {
		return 0, false
	}
	closeTime, ok := value.(int64)
	if !ok {
		return 0, false
	}
	return closeTime, true
}

// Wait blocks until pending Set operations are visible to Get. Intended for
// tests and shutdown paths.
func (csc *ClosedSessionCache) Wait() {
	csc.cache.Wait()
}
