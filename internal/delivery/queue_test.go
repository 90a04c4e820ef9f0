package delivery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(id string, itemType ItemType) Item {
	return Item{
		ID:        id,
		Type:      itemType,
		DeviceID:  "dev-1",
		Timestamp: time.Now(),
	}
}

func TestQueueFIFO(t *testing.T) {
	q := newBoundedQueue(4)

	for i := 0; i < 3; i++ {
		evicted := q.Push(testItem(fmt.Sprintf("u%d", i), TypeUsage))
		assert.Empty(t, evicted)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		head, err := q.Head(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("u%d", i), head.ID)
		q.Ack(head.ID)
	}
	assert.Zero(t, q.Len())
}

func TestQueueFullEvictsOldestUsageFirst(t *testing.T) {
	q := newBoundedQueue(3)

	q.Push(testItem("a0", TypeAlert))
	q.Push(testItem("u0", TypeUsage))
	q.Push(testItem("u1", TypeUsage))

	// Full queue: the new alert displaces the oldest usage record, not the
	// older alert.
	evicted := q.Push(testItem("a1", TypeAlert))
	require.Len(t, evicted, 1)
	assert.Equal(t, "u0", evicted[0].ID)
	assert.Equal(t, TypeUsage, evicted[0].Type)
	assert.Equal(t, 3, q.Len())

	head, err := q.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a0", head.ID)
}

func TestQueueFullOfAlertsEvictsOldestAlert(t *testing.T) {
	q := newBoundedQueue(2)

	q.Push(testItem("a0", TypeAlert))
	q.Push(testItem("a1", TypeAlert))

	evicted := q.Push(testItem("a2", TypeAlert))
	require.Len(t, evicted, 1)
	assert.Equal(t, "a0", evicted[0].ID)
}

func TestQueueFullUsageNeverDisplacesAlerts(t *testing.T) {
	q := newBoundedQueue(2)

	q.Push(testItem("a0", TypeAlert))
	q.Push(testItem("a1", TypeAlert))

	// The incoming usage record is itself rejected
	evicted := q.Push(testItem("u0", TypeUsage))
	require.Len(t, evicted, 1)
	assert.Equal(t, "u0", evicted[0].ID)
	assert.Equal(t, 2, q.Len())
}

func TestQueueHeadBlocksUntilPush(t *testing.T) {
	q := newBoundedQueue(2)

	got := make(chan Item, 1)
	go func() {
		head, err := q.Head(context.Background())
		if err == nil {
			got <- head
		}
	}()

	time.Sleep(50 * time.Millisecond)
	q.Push(testItem("u0", TypeUsage))

	select {
	case head := <-got:
		assert.Equal(t, "u0", head.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("Head did not observe pushed item")
	}
}

func TestQueueHeadHonorsContext(t *testing.T) {
	q := newBoundedQueue(2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Head(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueAckOnlyRemovesMatchingHead(t *testing.T) {
	q := newBoundedQueue(2)
	q.Push(testItem("u0", TypeUsage))
	q.Push(testItem("u1", TypeUsage))

	// Stale ack (head was already evicted/replaced) is a no-op
	q.Ack("u1")
	assert.Equal(t, 2, q.Len())

	q.Ack("u0")
	assert.Equal(t, 1, q.Len())
}

func TestQueueDrain(t *testing.T) {
	q := newBoundedQueue(4)
	q.Push(testItem("u0", TypeUsage))
	q.Push(testItem("a0", TypeAlert))

	pending := q.Drain()
	require.Len(t, pending, 2)
	assert.Zero(t, q.Len())
}
