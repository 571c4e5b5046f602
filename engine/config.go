package engine

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

// Config holds engine tuning parameters.
type Config struct {
	// WorkerPoolSize is the number of conversion workers
	WorkerPoolSize int

	// BufferSize is the maximum number of pending rows
	BufferSize int

	// BatchSize is the number of rows per conversion batch
	BatchSize int

	// BatchTimeout flushes a partial batch after this long
	BatchTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WorkerPoolSize: 100,
		BufferSize:     10000,
		BatchSize:      500,
		BatchTimeout:   time.Second,
	}
}

// Engine ties the intake buffer, the batch builder and the worker pool
// together behind one ingest/drain surface.
type Engine struct {
	pool    *WorkerPool
	buffer  *RowBuffer
	batcher *BatchBuilder
	conv    *convert.Converter
	config  *Config
}

// NewEngine creates an engine from the given config.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	return &Engine{
		pool:    NewWorkerPool("engine-workers", config.WorkerPoolSize),
		buffer:  NewRowBuffer(config.BufferSize),
		batcher: NewBatchBuilder(config.BatchSize, config.BatchTimeout),
		conv:    convert.NewConverter(),
		config:  config,
	}
}

// Ingest admits one row. Rows accumulate in the batch builder and move
// into the buffer one batch at a time, when the batch fills or times out.
func (e *Engine) Ingest(row convert.Row) error {
	if row.Schema == nil {
		return ErrNoSchema
	}
	if batch := e.batcher.Add(row); batch != nil {
		return e.bufferBatch(batch)
	}
	return nil
}

func (e *Engine) bufferBatch(rows []convert.Row) error {
	for _, r := range rows {
		if err := e.buffer.Add(r); err != nil {
			return err
		}
	}
	return nil
}

// Drain flushes any partial batch and converts every buffered row,
// preserving intake order.
func (e *Engine) Drain(ctx context.Context) ([]bson.D, error) {
	if batch := e.batcher.ForceFlush(); batch != nil {
		if err := e.bufferBatch(batch); err != nil {
			return nil, err
		}
	}

	rows := e.buffer.PopBatch(e.buffer.Size())
	if len(rows) == 0 {
		return nil, nil
	}
	return ConvertBatch(ctx, e.conv, rows, e.config.WorkerPoolSize)
}

// Pool exposes the underlying worker pool for streaming submissions.
func (e *Engine) Pool() *WorkerPool {
	return e.pool
}

// Buffer exposes the intake buffer.
func (e *Engine) Buffer() *RowBuffer {
	return e.buffer
}

// Batcher exposes the batch builder.
func (e *Engine) Batcher() *BatchBuilder {
	return e.batcher
}

// Shutdown stops the worker pool and clears the buffer.
func (e *Engine) Shutdown() {
	e.pool.Shutdown()
	e.buffer.Clear()
}
