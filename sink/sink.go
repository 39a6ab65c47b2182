// Package sink persists visibility records produced by trackers.
// Every sink receives one batch per tracker tick.
package sink

import (
	"context"
	stderrors "errors"

	"github.com/LdDl/fovlog-go/fovlog"
)

// Sink receives and stores batches of records. It does not return query results.
type Sink interface {
	Append(ctx context.Context, records []fovlog.LogRecord) error
	Close() error
}

// Multi fans a batch out to every sink. Failure of one sink does not stop the others.
type Multi []Sink

// Append implements Sink
func (multi Multi) Append(ctx context.Context, records []fovlog.LogRecord) error {
	var errs []error
	for _, s := range multi {
		if err := s.Append(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Close closes every sink in reverse order
func (multi Multi) Close() error {
	var errs []error
	for i := len(multi) - 1; i >= 0; i-- {
		if err := multi[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Memory keeps every batch in memory. Useful for tests and for inspection tools.
type Memory struct {
	Batches [][]fovlog.LogRecord
}

// Append implements Sink
func (memory *Memory) Append(ctx context.Context, records []fovlog.LogRecord) error {
	batch := make([]fovlog.LogRecord, len(records))
	copy(batch, records)
	memory.Batches = append(memory.Batches, batch)
	return nil
}

// Close implements Sink
func (memory *Memory) Close() error {
	return nil
}

// Records returns all stored records in append order
func (memory *Memory) Records() []fovlog.LogRecord {
	out := make([]fovlog.LogRecord, 0)
	for _, batch := range memory.Batches {
		out = append(out, batch...)
	}
	return out
}
