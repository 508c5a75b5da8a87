package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verigrant/pkg/domain"
	audit "verigrant/pkg/platform/audit"
	"verigrant/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actor := id.AccountID(uuid.New())
	event := audit.Event{
		Actor:  actor,
		Action: string(audit.EventDepositReceived),
		Amount: 3000,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventDepositReceived), events[0].Action)
	assert.Equal(t, int64(3000), events[0].Amount)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	actor := id.AccountID(uuid.New())
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Actor:  actor,
			Action: string(audit.EventYieldClaimed),
		})
		require.NoError(t, err)
	}

	// Close should drain all buffered events.
	pub.Close()

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_SetsTimestampAndCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventGrantDisbursed),
	})
	require.NoError(t, err)

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.WithinDuration(t, time.Now().UTC(), events[0].Timestamp, time.Minute)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}
