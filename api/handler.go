package api

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rowbridge-dev/RowBridge-Engine/arrowio"
	"github.com/rowbridge-dev/RowBridge-Engine/convert"
	"github.com/rowbridge-dev/RowBridge-Engine/engine"
)

// ConvertHandler turns Arrow IPC payloads into BSON documents.
type ConvertHandler struct {
	codec   *arrowio.Codec
	conv    *convert.Converter
	metrics *Metrics
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler() *ConvertHandler {
	return &ConvertHandler{
		codec:   arrowio.NewCodec(),
		conv:    convert.NewConverter(),
		metrics: DefaultMetrics,
	}
}

// ProcessBatch parses the input bytes as an Arrow IPC stream, converts
// every row of every record batch in parallel, and returns the documents
// concatenated in row order. BSON documents carry their own length
// prefix, so the payload needs no extra framing.
//
// Conversion is all-or-nothing: one bad row fails the whole request.
func (h *ConvertHandler) ProcessBatch(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("received empty data")
	}

	start := time.Now()
	total := 0
	defer func() {
		h.metrics.RecordBatch(total, time.Since(start))
	}()

	records, err := h.codec.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read IPC stream: %w", err)
	}
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	var out []byte
	for r, rec := range records {
		rows, err := arrowio.RecordRows(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: failed to extract rows: %w", r, err)
		}

		convStart := time.Now()
		docs, err := engine.ConvertBatch(context.Background(), h.conv, rows, 0)
		if err != nil {
			h.metrics.RecordRows(len(rows), false, time.Since(convStart))
			return nil, fmt.Errorf("record %d: %w", r, err)
		}
		h.metrics.RecordRows(len(rows), true, time.Since(convStart))

		for i, doc := range docs {
			raw, err := bson.Marshal(doc)
			if err != nil {
				return nil, fmt.Errorf("row %d: failed to marshal document: %w", total+i, err)
			}
			out = append(out, raw...)
		}
		total += len(rows)
	}

	return out, nil
}
