package engine

import (
	"fmt"
	"testing"
	"time"
)

func TestBatchBuilderSizeFlush(t *testing.T) {
	bb := NewBatchBuilder(3, time.Hour)

	if batch := bb.Add(testRow("r0", 0)); batch != nil {
		t.Fatalf("Unexpected flush after 1 row: %d rows", len(batch))
	}
	if batch := bb.Add(testRow("r1", 1)); batch != nil {
		t.Fatalf("Unexpected flush after 2 rows: %d rows", len(batch))
	}

	batch := bb.Add(testRow("r2", 2))
	if len(batch) != 3 {
		t.Fatalf("Expected flush of 3 rows, got %d", len(batch))
	}
	for i, row := range batch {
		if row.Values[0] != fmt.Sprintf("r%d", i) {
			t.Errorf("Row %d out of order: %v", i, row.Values[0])
		}
	}
	if bb.Len() != 0 {
		t.Errorf("Builder should be empty after flush, got %d", bb.Len())
	}
}

func TestBatchBuilderTimeoutFlush(t *testing.T) {
	bb := NewBatchBuilder(100, 20*time.Millisecond)

	if batch := bb.Add(testRow("r0", 0)); batch != nil {
		t.Fatalf("Unexpected immediate flush: %d rows", len(batch))
	}

	time.Sleep(30 * time.Millisecond)

	batch := bb.Add(testRow("r1", 1))
	if len(batch) != 2 {
		t.Fatalf("Expected timeout flush of 2 rows, got %d", len(batch))
	}
}

func TestBatchBuilderForceFlush(t *testing.T) {
	bb := NewBatchBuilder(100, time.Hour)

	if batch := bb.ForceFlush(); batch != nil {
		t.Errorf("ForceFlush on empty builder should return nil, got %d rows", len(batch))
	}

	_ = bb.Add(testRow("r0", 0))
	_ = bb.Add(testRow("r1", 1))

	batch := bb.ForceFlush()
	if len(batch) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(batch))
	}
	if bb.Len() != 0 {
		t.Errorf("Builder should be empty after ForceFlush, got %d", bb.Len())
	}
}

func TestBatchBuilderSequentialBatches(t *testing.T) {
	bb := NewBatchBuilder(2, time.Hour)

	var batches int
	for i := 0; i < 10; i++ {
		if batch := bb.Add(testRow(fmt.Sprintf("r%d", i), int64(i))); batch != nil {
			batches++
			if len(batch) != 2 {
				t.Errorf("Batch %d has %d rows, expected 2", batches, len(batch))
			}
		}
	}
	if batches != 5 {
		t.Errorf("Expected 5 batches, got %d", batches)
	}
}
