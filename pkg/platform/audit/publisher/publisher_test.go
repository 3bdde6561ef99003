package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "zgjedhjet/pkg/platform/audit"
	"zgjedhjet/pkg/platform/audit/store/memory"
	"zgjedhjet/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action:  string(audit.EventResultsImported),
		Subject: "batch-1",
		Count:   12,
	})
	require.NoError(t, err)

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventResultsImported), events[0].Action)
	assert.Equal(t, 12, events[0].Count)
}

func TestPublisher_DerivesCategoryFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventIndexMigrated)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventIndexCreated)}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.CategoryData, events[0].Category)
	assert.Equal(t, audit.CategoryOperations, events[1].Category)
}

func TestPublisher_StampsRequestTime(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	at := time.Date(2025, 2, 9, 8, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventResultsImported)}))

	explicit := at.Add(time.Hour)
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventIndexMigrated), Timestamp: explicit}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, at.Equal(events[0].Timestamp))
	assert.True(t, explicit.Equal(events[1].Timestamp))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventResultsImported)})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByAction(context.Background(), audit.EventResultsImported)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterCloseIsRejected(t *testing.T) {
	for name, opts := range map[string][]Option{
		"sync":  nil,
		"async": {WithAsyncBuffer(4)},
	} {
		t.Run(name, func(t *testing.T) {
			store := memory.NewInMemoryStore()
			pub := NewPublisher(store, opts...)
			pub.Close()

			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventIndexMigrated)})
			assert.ErrorIs(t, err, ErrClosed)

			events, err := store.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

// A handler still running when shutdown gives up keeps emitting while the
// publisher closes underneath it.
func TestPublisher_ConcurrentEmitAndClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(8))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventResultsImported)})
				if err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, ErrBufferFull) {
					t.Errorf("unexpected emit error: %v", err)
				}
			}
		}()
	}

	assert.NotPanics(t, pub.Close)
	wg.Wait()
	assert.ErrorIs(t, pub.Emit(context.Background(), audit.Event{}), ErrClosed)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	// First event is picked up by the worker and blocks in Append, second fills
	// the buffer; at least one of the remaining emits must see a full buffer.
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		fullErr int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Emit(context.Background(), audit.Event{Action: "x"}); errors.Is(err, ErrBufferFull) {
				mu.Lock()
				fullErr++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(store.release)
	pub.Close()

	assert.Positive(t, fullErr)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventIndexMigrated)}))
	after := time.Now()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.False(t, events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action:    string(audit.EventResultsImported),
		Timestamp: customTime,
	}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_SyncModeReturnsStoreError(t *testing.T) {
	pub := NewPublisher(failingStore{})
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventResultsImported)})
	assert.Error(t, err)
}

type blockingStore struct {
	release chan struct{}
}

func (s *blockingStore) Append(context.Context, audit.Event) error {
	<-s.release
	return nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("broker down")
}
