package jobs

import (
	"context"
	"log/slog"
	"sync"
)

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, id string) error
	Unfinished() ([]string, error)
}

// BatchWorker processes upload batches one at a time in arrival order.
type BatchWorker struct {
	processor BatchProcessor
	queue     chan string
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

func NewBatchWorker(processor BatchProcessor, queueSize int) *BatchWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &BatchWorker{
		processor: processor,
		queue:     make(chan string, queueSize),
	}
}

// Enqueue schedules a batch. When the queue is full the batch stays pending
// and is picked up by the next Start.
func (w *BatchWorker) Enqueue(id string) {
	select {
	case w.queue <- id:
	default:
		slog.Warn("batch queue full, batch deferred", "batch_id", id)
	}
}

// Start resumes batches interrupted by a restart, then serves the queue
// until Stop.
func (w *BatchWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ids, err := w.processor.Unfinished()
		if err != nil {
			slog.Error("failed to load unfinished batches", "error", err)
		}
		for _, id := range ids {
			slog.Info("resuming upload batch", "batch_id", id)
			w.process(ctx, id)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case id := <-w.queue:
				w.process(ctx, id)
			}
		}
	}()
}

func (w *BatchWorker) process(ctx context.Context, id string) {
	if ctx.Err() != nil {
		return
	}
	err := w.processor.ProcessBatch(ctx, id)
	if err != nil {
		slog.Error("upload batch failed", "error", err, "batch_id", id)
	}
}

// Stop cancels the current batch between items and waits for the worker.
func (w *BatchWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
