package engine

import (
	"sync"
	"time"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

// BatchBuilder accumulates rows into conversion batches, flushing when a
// batch reaches its target size or has been open longer than the batch
// timeout. Micro-batching keeps ConvertBatch calls large enough to make
// the parallel fan-out worthwhile on streaming ingest.
type BatchBuilder struct {
	batchSize    int
	batchTimeout time.Duration
	current      []convert.Row
	batchStart   time.Time
	mu           sync.Mutex
}

// NewBatchBuilder creates a batch builder.
func NewBatchBuilder(batchSize int, timeout time.Duration) *BatchBuilder {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &BatchBuilder{
		batchSize:    batchSize,
		batchTimeout: timeout,
		current:      make([]convert.Row, 0, batchSize),
		batchStart:   time.Now(),
	}
}

// Add appends a row to the current batch.
// Returns the batch if it is ready for conversion, nil otherwise.
func (b *BatchBuilder) Add(row convert.Row) []convert.Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Start timer on first row
	if len(b.current) == 0 {
		b.batchStart = time.Now()
	}

	b.current = append(b.current, row)

	if b.isReady() {
		return b.finalize()
	}
	return nil
}

// ForceFlush returns the current batch regardless of readiness.
func (b *BatchBuilder) ForceFlush() []convert.Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.current) == 0 {
		return nil
	}
	return b.finalize()
}

// isReady checks if the batch should flush (called with lock held).
func (b *BatchBuilder) isReady() bool {
	if len(b.current) >= b.batchSize {
		return true
	}
	if b.batchTimeout > 0 && time.Since(b.batchStart) >= b.batchTimeout {
		return true
	}
	return false
}

// finalize returns the current batch and resets (called with lock held).
func (b *BatchBuilder) finalize() []convert.Row {
	batch := b.current
	b.current = make([]convert.Row, 0, b.batchSize)
	b.batchStart = time.Now()
	return batch
}

// Len returns the current batch size.
func (b *BatchBuilder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.current)
}
