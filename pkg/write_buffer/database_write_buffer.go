package write_buffer

import (
	"context"
	"fmt"
	"sync"
	"time"

	weftElasticsearch "github.com/weftlabs/weft/pkg/elasticsearch/client"
	"go.uber.org/zap"
)

const WriteQueueSize = 30
const flushTimeOut = 10 * time.Second

type DatabaseWriteBuffer[ValueType any] interface {
	WriteToBuffer(value []ValueType)
	Flush() error
}

type DatabaseWriteBufferImpl[ValueType interface{}] struct {
	writeQueue  []ValueType
	wc          weftElasticsearch.WeftClient
	esIndexName string
	logger      *zap.Logger
	mu          sync.Mutex
}

func NewDatabaseWriteBufferImpl[ValueType interface{}](
	wc weftElasticsearch.WeftClient,
	esIndexName string,
	logger *zap.Logger,
) *DatabaseWriteBufferImpl[ValueType] {
	return &DatabaseWriteBufferImpl[ValueType]{
		writeQueue:  []ValueType{},
		wc:          wc,
		esIndexName: esIndexName,
		logger:      logger,
	}
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) WriteToBuffer(
	value []ValueType,
) {
	wbc.mu.Lock()
	wbc.writeQueue = append(wbc.writeQueue, value...)
	pending := len(wbc.writeQueue)
	wbc.mu.Unlock()
	if pending > WriteQueueSize {
		go func() {
			err := wbc.Flush()
			if err != nil {
				wbc.logger.Error("Failed to flush to Elasticsearch", zap.Error(err))
			}
		}()
	}
}

// Flush bulk-indexes everything buffered so far. Also called on shutdown so
// the last partial batch is not lost.
func (wbc *DatabaseWriteBufferImpl[ValueType]) Flush() error {
	wbc.mu.Lock()
	defer wbc.mu.Unlock()
	ctx := context.Background()
	bulkCtx, cancel := context.WithTimeout(ctx, flushTimeOut)
	defer cancel()
	metaMap, dataMap, err := weftElasticsearch.ToMetaAndDataMap(wbc.writeQueue)
	if err != nil {
		return fmt.Errorf("error converting write queue to meta and data map: %w", err)
	}
	if len(metaMap) == 0 {
		wbc.writeQueue = []ValueType{}
		return nil
	}
	err = wbc.wc.BulkIndex(
		bulkCtx,
		metaMap,
		dataMap,
		wbc.esIndexName,
	)
	wbc.writeQueue = []ValueType{}
	if err != nil {
		return fmt.Errorf("error bulk indexing to Elasticsearch: %w", err)
	}
	return nil
}
