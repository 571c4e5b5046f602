package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

func TestRowBufferAdd(t *testing.T) {
	buf := NewRowBuffer(10)

	if err := buf.Add(testRow("r1", 1)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if buf.Size() != 1 {
		t.Errorf("Expected size 1, got %d", buf.Size())
	}
}

func TestRowBufferRejectsSchemalessRow(t *testing.T) {
	buf := NewRowBuffer(10)

	err := buf.Add(convert.NewSchemalessRow("a"))
	if !errors.Is(err, ErrNoSchema) {
		t.Errorf("Expected ErrNoSchema, got %v", err)
	}
	if buf.Size() != 0 {
		t.Errorf("Rejected row should not be buffered, size=%d", buf.Size())
	}
}

func TestRowBufferFull(t *testing.T) {
	buf := NewRowBuffer(2)

	_ = buf.Add(testRow("r1", 1))
	_ = buf.Add(testRow("r2", 2))

	err := buf.Add(testRow("r3", 3))
	if !errors.Is(err, ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}
	if !buf.IsFull() {
		t.Error("Buffer should report full")
	}
}

func TestRowBufferPopBatchFIFO(t *testing.T) {
	buf := NewRowBuffer(10)

	for i := 0; i < 5; i++ {
		_ = buf.Add(testRow(fmt.Sprintf("r%d", i), int64(i)))
	}

	batch := buf.PopBatch(3)
	if len(batch) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(batch))
	}
	for i, row := range batch {
		if row.Values[0] != fmt.Sprintf("r%d", i) {
			t.Errorf("Row %d out of order: %v", i, row.Values[0])
		}
	}
	if buf.Size() != 2 {
		t.Errorf("Expected 2 remaining, got %d", buf.Size())
	}

	// Popping more than available returns what is there.
	rest := buf.PopBatch(10)
	if len(rest) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rest))
	}
	if buf.PopBatch(1) != nil {
		t.Error("Empty buffer should pop nil")
	}
}

func TestRowBufferPeek(t *testing.T) {
	buf := NewRowBuffer(10)
	_ = buf.Add(testRow("r0", 0))
	_ = buf.Add(testRow("r1", 1))

	peeked := buf.Peek(2)
	if len(peeked) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(peeked))
	}
	if buf.Size() != 2 {
		t.Errorf("Peek should not remove rows, size=%d", buf.Size())
	}
}

func TestRowBufferClearAndStats(t *testing.T) {
	buf := NewRowBuffer(4)
	_ = buf.Add(testRow("r0", 0))

	stats := buf.Stats()
	if stats.Size != 1 || stats.MaxSize != 4 || stats.Available != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	buf.Clear()
	if buf.Size() != 0 {
		t.Errorf("Expected empty buffer after Clear, got %d", buf.Size())
	}
}

func TestRowBufferConcurrentAccess(t *testing.T) {
	buf := NewRowBuffer(1000)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = buf.Add(testRow(fmt.Sprintf("w%d-r%d", worker, j), int64(j)))
			}
		}(i)
	}
	wg.Wait()

	if buf.Size() != 500 {
		t.Errorf("Expected 500 rows, got %d", buf.Size())
	}
}
