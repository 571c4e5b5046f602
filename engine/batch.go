package engine

import (
	"context"
	"fmt"
	"runtime"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

// ConvertBatch converts a batch of rows in parallel, preserving input
// order in the output. The first conversion failure cancels the
// remaining work and is returned with the offending row's index; no
// partial batch is ever returned. parallelism <= 0 uses GOMAXPROCS.
func ConvertBatch(ctx context.Context, c *convert.Converter, rows []convert.Row, parallelism int) ([]bson.D, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	docs := make([]bson.D, len(rows))
	for i, row := range rows {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			doc, err := c.FromRow(row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
