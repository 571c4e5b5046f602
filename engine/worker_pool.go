// Package engine provides parallel row-to-document conversion: a worker
// pool for streaming workloads, order-preserving batch conversion, and
// buffering that decouples row ingest from conversion.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

// Task represents one row conversion submitted to the worker pool.
type Task struct {
	ID        string
	Row       convert.Row
	CreatedAt time.Time
	Ctx       context.Context
}

// NewTask creates a task with default values.
func NewTask(id string, row convert.Row) *Task {
	return &Task{
		ID:        id,
		Row:       row,
		CreatedAt: time.Now(),
		Ctx:       context.Background(),
	}
}

// Result represents the outcome of one conversion.
type Result struct {
	TaskID   string
	Success  bool
	Doc      bson.D
	Error    error
	Duration time.Duration
	WorkerID int
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Name        string  `json:"name"`
	Workers     int     `json:"workers"`
	Active      int64   `json:"active"`
	Converted   int64   `json:"converted"`
	Failed      int64   `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// WorkerPool converts rows to documents on a fixed set of goroutines.
// Conversion is stateless, so workers share one Converter without locks.
type WorkerPool struct {
	name     string
	workers  int
	conv     *convert.Converter
	taskChan chan *Task
	results  chan *Result
	wg       sync.WaitGroup

	// Atomic counters for thread-safe statistics
	active    int64
	converted int64
	failed    int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// NewWorkerPool creates a worker pool with the specified number of workers.
func NewWorkerPool(name string, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &WorkerPool{
		name:     name,
		workers:  workers,
		conv:     convert.NewConverter(),
		taskChan: make(chan *Task, workers*100),
		results:  make(chan *Result, workers*100),
		ctx:      ctx,
		cancel:   cancel,
		running:  true,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskChan:
			if !ok {
				return
			}
			p.convertTask(id, task)
		}
	}
}

// convertTask runs a single conversion and sends the result.
func (p *WorkerPool) convertTask(workerID int, task *Task) {
	atomic.AddInt64(&p.active, 1)
	defer atomic.AddInt64(&p.active, -1)

	start := time.Now()

	result := &Result{
		TaskID:   task.ID,
		WorkerID: workerID,
	}

	// Panic recovery so one poisoned row cannot take down the pool
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = errors.New("panic in conversion: " + panicToString(r))
			result.Duration = time.Since(start)
			atomic.AddInt64(&p.failed, 1)
			p.sendResult(result)
		}
	}()

	// Check caller abandonment before doing the work
	if task.Ctx != nil {
		select {
		case <-task.Ctx.Done():
			result.Success = false
			result.Error = task.Ctx.Err()
			result.Duration = time.Since(start)
			atomic.AddInt64(&p.failed, 1)
			p.sendResult(result)
			return
		default:
		}
	}

	doc, err := p.conv.FromRow(task.Row)
	result.Doc = doc
	result.Error = err
	result.Success = err == nil
	result.Duration = time.Since(start)

	if result.Success {
		atomic.AddInt64(&p.converted, 1)
	} else {
		atomic.AddInt64(&p.failed, 1)
	}

	p.sendResult(result)
}

func panicToString(r interface{}) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return "unknown panic"
	}
}

// sendResult sends a result to the result channel (non-blocking).
func (p *WorkerPool) sendResult(result *Result) {
	select {
	case p.results <- result:
	default:
		// Channel full, result dropped (caller should consume results)
	}
}

// Submit adds a conversion task to the pool.
func (p *WorkerPool) Submit(task *Task) error {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	if !running {
		return errors.New("worker pool is shut down")
	}

	select {
	case p.taskChan <- task:
		return nil
	default:
		return errors.New("task queue is full")
	}
}

// SubmitAndWait submits a task and waits for its result.
func (p *WorkerPool) SubmitAndWait(task *Task, timeout time.Duration) (*Result, error) {
	if err := p.Submit(task); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result := <-p.results:
			if result.TaskID == task.ID {
				return result, nil
			}
			// Put back non-matching results (not ideal, but simple)
			p.sendResult(result)
		}
	}
}

// Results returns the channel for consuming conversion results.
func (p *WorkerPool) Results() <-chan *Result {
	return p.results
}

// GetStats returns current worker pool statistics.
func (p *WorkerPool) GetStats() PoolStats {
	converted := atomic.LoadInt64(&p.converted)
	failed := atomic.LoadInt64(&p.failed)
	total := converted + failed

	var successRate float64
	if total > 0 {
		successRate = float64(converted) / float64(total) * 100
	}

	return PoolStats{
		Name:        p.name,
		Workers:     p.workers,
		Active:      atomic.LoadInt64(&p.active),
		Converted:   converted,
		Failed:      failed,
		Pending:     len(p.taskChan),
		SuccessRate: successRate,
	}
}

// Shutdown gracefully shuts down the worker pool.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	close(p.taskChan)
	p.wg.Wait()
	close(p.results)
}

// ShutdownWithTimeout shuts down with a timeout.
func (p *WorkerPool) ShutdownWithTimeout(timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	close(p.taskChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(p.results)
		return nil
	case <-time.After(timeout):
		return errors.New("shutdown timeout")
	}
}

// IsRunning returns true if the pool is still accepting tasks.
func (p *WorkerPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
