package engine

import (
	"errors"
	"sync"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

// Common errors for row buffer operations
var (
	ErrBufferFull = errors.New("row buffer is full")
	ErrNoSchema   = errors.New("row has no schema")
)

// RowBuffer is a bounded FIFO buffer of rows awaiting conversion. It
// decouples ingest (a transport or reader pushing rows) from the
// conversion workers draining them. Rows without a schema are rejected
// at the door since they can never convert.
type RowBuffer struct {
	rows    []convert.Row
	maxSize int
	mu      sync.RWMutex
}

// NewRowBuffer creates a RowBuffer with the specified maximum size.
func NewRowBuffer(maxSize int) *RowBuffer {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &RowBuffer{
		rows:    make([]convert.Row, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends a row to the buffer.
// Returns an error if the buffer is full or the row carries no schema.
func (b *RowBuffer) Add(row convert.Row) error {
	if row.Schema == nil {
		return ErrNoSchema
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.rows) >= b.maxSize {
		return ErrBufferFull
	}
	b.rows = append(b.rows, row)
	return nil
}

// PopBatch removes and returns up to n rows in arrival order.
func (b *RowBuffer) PopBatch(n int) []convert.Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || len(b.rows) == 0 {
		return nil
	}
	if n > len(b.rows) {
		n = len(b.rows)
	}

	batch := make([]convert.Row, n)
	copy(batch, b.rows[:n])
	b.rows = append(b.rows[:0], b.rows[n:]...)
	return batch
}

// Peek returns up to n rows in arrival order without removing them.
func (b *RowBuffer) Peek(n int) []convert.Row {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || len(b.rows) == 0 {
		return nil
	}
	if n > len(b.rows) {
		n = len(b.rows)
	}

	batch := make([]convert.Row, n)
	copy(batch, b.rows[:n])
	return batch
}

// Size returns the current number of buffered rows.
func (b *RowBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows)
}

// IsFull returns true if the buffer has reached its maximum size.
func (b *RowBuffer) IsFull() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows) >= b.maxSize
}

// Clear removes all buffered rows.
func (b *RowBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = b.rows[:0]
}

// BufferStats contains row buffer statistics.
type BufferStats struct {
	Size      int `json:"size"`
	MaxSize   int `json:"max_size"`
	Available int `json:"available"`
}

func (b *RowBuffer) Stats() BufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BufferStats{
		Size:      len(b.rows),
		MaxSize:   b.maxSize,
		Available: b.maxSize - len(b.rows),
	}
}
