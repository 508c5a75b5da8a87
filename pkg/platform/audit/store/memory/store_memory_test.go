package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verigrant/pkg/domain"
	"verigrant/pkg/platform/audit"
)

func TestInMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	alice := id.AccountID(uuid.New())
	bob := id.AccountID(uuid.New())

	require.NoError(t, store.Append(ctx, audit.Event{Actor: alice, Action: "deposit_received", Amount: 100}))
	require.NoError(t, store.Append(ctx, audit.Event{Actor: bob, Action: "grant_disbursed", Amount: 50}))
	require.NoError(t, store.Append(ctx, audit.Event{Actor: alice, Action: "funds_invested", Amount: 40}))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "deposit_received", all[0].Action, "events keep append order")

	aliceEvents, err := store.ListByActor(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceEvents, 2)
	assert.Equal(t, "funds_invested", aliceEvents[1].Action)

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "grant_disbursed", recent[0].Action)
	assert.Equal(t, "funds_invested", recent[1].Action)

	store.Clear()
	all, err = store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
