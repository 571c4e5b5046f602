// Package arrowio is the Arrow boundary of the engine: IPC
// serialization for record batches and extraction of positional rows
// from records so they can be handed to the document converter.
package arrowio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrEmptyStream is returned when an IPC payload contains no records.
var ErrEmptyStream = errors.New("no records in IPC data")

// Codec reads and writes Arrow IPC streams.
type Codec struct {
	alloc memory.Allocator
}

// NewCodec creates a Codec with the Go allocator.
func NewCodec() *Codec {
	return &Codec{alloc: memory.NewGoAllocator()}
}

// Serialize writes one record as an IPC stream.
func (c *Codec) Serialize(record arrow.Record) ([]byte, error) {
	return c.SerializeAll([]arrow.Record{record})
}

// SerializeAll writes records sharing one schema as a single IPC stream.
func (c *Codec) SerializeAll(records []arrow.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmptyStream
	}

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(records[0].Schema()), ipc.WithAllocator(c.alloc))

	for i, record := range records {
		if err := writer.Write(record); err != nil {
			writer.Close()
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// ReadFirst reads the first record of an IPC stream. The returned record
// is retained; the caller must Release it.
func (c *Codec) ReadFirst(data []byte) (arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(c.alloc))
	if err != nil {
		return nil, fmt.Errorf("failed to create IPC reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, ErrEmptyStream
	}

	record := reader.Record()
	record.Retain()
	return record, nil
}

// ReadAll reads every record of an IPC stream. Returned records are
// retained; the caller must Release each.
func (c *Codec) ReadAll(data []byte) ([]arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(c.alloc))
	if err != nil {
		return nil, fmt.Errorf("failed to create IPC reader: %w", err)
	}
	defer reader.Release()

	var records []arrow.Record
	for reader.Next() {
		record := reader.Record()
		record.Retain()
		records = append(records, record)
	}

	if reader.Err() != nil {
		for _, r := range records {
			r.Release()
		}
		return nil, reader.Err()
	}
	if len(records) == 0 {
		return nil, ErrEmptyStream
	}
	return records, nil
}
