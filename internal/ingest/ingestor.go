// Package ingest batches sales snapshots into the snapshot store.
package ingest

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"example.com/ticketsales/internal/domain"
	"example.com/ticketsales/internal/idempotency"
)

// BatchWriter persists a batch, returning how many rows were new.
type BatchWriter interface {
	InsertBatch(ctx context.Context, items []domain.Snapshot) (int64, error)
}

type Ingestor struct {
	queue        chan domain.Snapshot
	writer       BatchWriter
	batchMaxSize int
	batchMaxWait time.Duration
	done         chan struct{}

	// mu orders Enqueue against the final drain: once stopped is set under
	// the write lock, no send can land in the queue unread.
	mu      sync.RWMutex
	stopped bool

	inserted atomic.Int64
	failed   atomic.Int64
}

func NewIngestor(writer BatchWriter, queueMaxSize, batchMaxSize int, batchMaxWait time.Duration) *Ingestor {
	return &Ingestor{
		queue:        make(chan domain.Snapshot, queueMaxSize),
		writer:       writer,
		batchMaxSize: max(batchMaxSize, 1),
		batchMaxWait: batchMaxWait,
		done:         make(chan struct{}),
	}
}

// Start runs the batching loop until ctx is cancelled. On cancellation the
// queue is drained and flushed once more before Done is closed.
func (ig *Ingestor) Start(ctx context.Context) {
	go func() {
		defer close(ig.done)

		batch := make([]domain.Snapshot, 0, ig.batchMaxSize)
		t := time.NewTimer(ig.batchMaxWait)
		defer t.Stop()

		resetTimer := func() {
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(ig.batchMaxWait)
		}

		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				resetTimer()
				return
			}
			affected, err := ig.writer.InsertBatch(ctx, batch)
			if err != nil {
				ig.failed.Add(int64(len(batch)))
				log.Printf("[ingest] batch insert FAILED: err=%v dropped=%d", err, len(batch))
			} else {
				ig.inserted.Add(affected)
				log.Printf("[ingest] batch insert OK: inserted=%d size=%d", affected, len(batch))
			}
			batch = batch[:0]
			resetTimer()
		}

		for {
			select {
			case <-ctx.Done():
				ig.mu.Lock()
				ig.stopped = true
				ig.mu.Unlock()

				final := context.WithoutCancel(ctx)
			drain:
				for {
					select {
					case s := <-ig.queue:
						batch = append(batch, s)
						if len(batch) >= ig.batchMaxSize {
							flush(final)
						}
					default:
						break drain
					}
				}
				flush(final)
				return
			case s := <-ig.queue:
				batch = append(batch, s)
				if len(batch) >= ig.batchMaxSize {
					flush(ctx)
				}
			case <-t.C:
				flush(ctx)
			}
		}
	}()
}

// Enqueue stamps the snapshot key and queues s without blocking. It reports
// false when the queue is full or the ingestor has stopped.
func (ig *Ingestor) Enqueue(s domain.Snapshot) bool {
	s.Key, _ = idempotency.DeriveKey(&s)

	ig.mu.RLock()
	defer ig.mu.RUnlock()
	if ig.stopped {
		return false
	}
	select {
	case ig.queue <- s:
		return true
	default:
		return false
	}
}

// Done is closed after the final flush.
func (ig *Ingestor) Done() <-chan struct{} { return ig.done }

// Inserted is the number of new rows written so far.
func (ig *Ingestor) Inserted() int64 { return ig.inserted.Load() }

// Failed is the number of snapshots dropped by failed batches.
func (ig *Ingestor) Failed() int64 { return ig.failed.Load() }
