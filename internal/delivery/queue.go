package delivery

import (
	"context"
	"sync"

	"github.com/arpitjain2323/buddyguard/internal/errors"
)

// boundedQueue is the FIFO buffer between the scheduler and the delivery
// loop. Push never blocks: when the queue is full, the oldest usage record
// gives way first, preserving alert delivery priority.
type boundedQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	items    []Item
	capacity int
	closed   bool
}

func newBoundedQueue(capacity int) *boundedQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &boundedQueue{
		items:    make([]Item, 0, capacity),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push enqueues the item, evicting if necessary. The returned slice holds
// anything displaced (or the item itself when it could not be admitted);
// evictions are the caller's responsibility to account for.
func (q *boundedQueue) Push(item Item) (evicted []Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return []Item{item}
	}

	if len(q.items) >= q.capacity {
		if idx := q.oldestUsageIndex(); idx >= 0 {
			evicted = append(evicted, q.items[idx])
			q.items = append(q.items[:idx], q.items[idx+1:]...)
		} else if item.Type == TypeAlert {
			// All alerts: the oldest yields to newer information
			evicted = append(evicted, q.items[0])
			q.items = q.items[1:]
		} else {
			// A usage record never displaces an alert
			return []Item{item}
		}
	}

	q.items = append(q.items, item)
	q.notEmpty.Signal()

	return evicted
}

// Head blocks until an item is available and returns it without removing
// it; the delivery loop acknowledges with Ack once the collector accepts.
func (q *boundedQueue) Head(ctx context.Context) (Item, error) {
	errFactory := errors.New()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		if err := q.waitWithContext(ctx); err != nil {
			return Item{}, err
		}
	}

	if len(q.items) == 0 && q.closed {
		return Item{}, errFactory.New(ErrQueueClosed)
	}

	return q.items[0], nil
}

// Ack removes the head if it still carries the given ID. The head may have
// been evicted while in flight; that is not an error.
func (q *boundedQueue) Ack(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) > 0 && q.items[0].ID == id {
		q.items = q.items[1:]
	}
}

func (q *boundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain empties the queue, returning what was pending. Used at shutdown to
// hand leftovers to the spool.
func (q *boundedQueue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.items
	q.items = nil
	return pending
}

func (q *boundedQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
}

func (q *boundedQueue) oldestUsageIndex() int {
	for i := range q.items {
		if q.items[i].Type == TypeUsage {
			return i
		}
	}
	return -1
}

// waitWithContext waits on the condition variable while also monitoring the
// provided context for cancellation.
func (q *boundedQueue) waitWithContext(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.notEmpty.Wait()
	}()

	select {
	case <-ctx.Done():
		q.notEmpty.Broadcast()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}
