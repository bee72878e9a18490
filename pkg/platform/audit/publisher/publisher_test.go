package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "healthnet/pkg/domain"
	audit "healthnet/pkg/platform/audit"
	"healthnet/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	workerID := id.WorkerID(11)
	err := pub.Emit(context.Background(), audit.Event{
		WorkerID: workerID,
		Action:   string(audit.EventClosedUserGroupChange),
		Fields:   map[string]any{"phone": "+27721230000", "change": true},
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), workerID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventClosedUserGroupChange), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.Equal(t, true, events[0].Fields["change"])
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	workerID := id.WorkerID(12)
	err := pub.Emit(context.Background(), audit.Event{
		WorkerID: workerID,
		Action:   string(audit.EventWorkerAutoVerified),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := pub.List(context.Background(), workerID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	workerID := id.WorkerID(13)
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			WorkerID: workerID,
			Action:   string(audit.EventClosedUserGroupChange),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByWorker(context.Background(), workerID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterCloseWritesThrough(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	workerID := id.WorkerID(14)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{WorkerID: workerID, Action: "late"}))

	events, err := store.ListByWorker(context.Background(), workerID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	workerID := id.WorkerID(15)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				WorkerID: workerID,
				Action:   string(audit.EventClosedUserGroupChange),
			})
			if err != nil {
				assert.True(t, errors.Is(err, ErrBufferFull))
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	workerID := id.WorkerID(16)
	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		WorkerID: workerID,
		Action:   string(audit.EventWorkerManuallyVerified),
	}))
	after := time.Now()

	events, err := pub.List(context.Background(), workerID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.False(t, events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	workerID := id.WorkerID(17)
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		WorkerID:  workerID,
		Action:    string(audit.EventClosedUserGroupChange),
		Timestamp: customTime,
	}))

	events, err := pub.List(context.Background(), workerID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_MultipleEventsKeepOrder(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	workerID := id.WorkerID(18)
	actions := []audit.AuditEvent{
		audit.EventWorkerAutoVerified,
		audit.EventClosedUserGroupRequested,
		audit.EventClosedUserGroupChange,
	}
	for _, action := range actions {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{WorkerID: workerID, Action: string(action)}))
	}

	result, err := pub.List(context.Background(), workerID)
	require.NoError(t, err)
	require.Len(t, result, 3)
	for i, action := range actions {
		assert.Equal(t, string(action), result[i].Action)
	}
	assert.Equal(t, audit.CategoryOperations, result[1].Category)
}
