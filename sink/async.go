package sink

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/charmbracelet/log"
)

// DefaultQueueSize is the number of batches Async keeps before dropping
const DefaultQueueSize = 4096

// AsyncStats describes queue state of Async
type AsyncStats struct {
	QueueDepth    int
	QueueCapacity int
	Written       uint64
	Dropped       uint64
	Failed        uint64
}

// Async moves appends of the wrapped sink off the caller's goroutine.
// Batches are queued in a bounded channel and written by a single goroutine in arrival order.
// When the queue is full the batch is dropped and counted.
type Async struct {
	next   Sink
	logger *log.Logger

	ch   chan []fovlog.LogRecord
	wg   sync.WaitGroup
	once sync.Once

	// mu guards ch against sends after close
	mu      sync.RWMutex
	closed  bool
	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsync starts writer goroutine for next. Non-positive size means DefaultQueueSize.
func NewAsync(next Sink, size int, logger *log.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	async := &Async{
		next:   next,
		logger: logger,
		ch:     make(chan []fovlog.LogRecord, size),
	}
	async.wg.Add(1)
	go func() {
		defer async.wg.Done()
		async.loop()
	}()
	return async
}

func (async *Async) loop() {
	ctx := context.Background()
	for batch := range async.ch {
		if err := async.next.Append(ctx, batch); err != nil {
			async.failed.Add(1)
			async.logger.Warn("async append failed", "records", len(batch), "err", err)
			continue
		}
		async.written.Add(1)
	}
}

// Append implements Sink. It never blocks.
func (async *Async) Append(ctx context.Context, records []fovlog.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := make([]fovlog.LogRecord, len(records))
	copy(batch, records)
	async.mu.RLock()
	defer async.mu.RUnlock()
	if async.closed {
		return nil
	}
	select {
	case async.ch <- batch:
	default:
		async.dropped.Add(1)
	}
	return nil
}

// Stats returns queue counters
func (async *Async) Stats() AsyncStats {
	return AsyncStats{
		QueueDepth:    len(async.ch),
		QueueCapacity: cap(async.ch),
		Written:       async.written.Load(),
		Dropped:       async.dropped.Load(),
		Failed:        async.failed.Load(),
	}
}

// Close drains the queue and closes the wrapped sink
func (async *Async) Close() error {
	var err error
	async.once.Do(func() {
		async.mu.Lock()
		async.closed = true
		close(async.ch)
		async.mu.Unlock()
		async.wg.Wait()
		err = async.next.Close()
	})
	return err
}
