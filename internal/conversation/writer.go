// ABOUTME: Background write-through of serialized snapshots to the BlobStore
// ABOUTME: One write per mutation in FIFO order; enqueue never blocks, Close drains

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/store"
)

// snapshotWriter persists snapshots off the caller's goroutine. Snapshots
// are neither coalesced nor debounced: each enqueued snapshot is written,
// in order.
type snapshotWriter struct {
	blobs  store.BlobStore
	logger *slog.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	queue   [][]byte
	pending int // queued plus in-flight snapshots
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newSnapshotWriter(blobs store.BlobStore, logger *slog.Logger) *snapshotWriter {
	w := &snapshotWriter{
		blobs:  blobs,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// enqueue schedules data for writing. It returns false once the writer is
// closed.
func (w *snapshotWriter) enqueue(data []byte) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.queue = append(w.queue, data)
	w.pending++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

func (w *snapshotWriter) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 {
			if w.closed {
				w.mu.Unlock()
				return
			}
			w.mu.Unlock()
			<-w.wake
			w.mu.Lock()
		}
		data := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		w.mu.Unlock()

		if err := w.blobs.Write(context.Background(), data); err != nil {
			w.logger.Error("persisting conversations failed", "error", err, "size", len(data))
		}

		w.mu.Lock()
		w.pending--
		if w.pending == 0 {
			w.idle.Broadcast()
		}
		w.mu.Unlock()
	}
}

// flush blocks until every snapshot enqueued so far has been written.
func (w *snapshotWriter) flush() {
	w.mu.Lock()
	for w.pending > 0 {
		w.idle.Wait()
	}
	w.mu.Unlock()
}

// close stops accepting snapshots and waits for the queue to drain.
func (w *snapshotWriter) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}
