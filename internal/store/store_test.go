package store

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/identity"
	"github.com/feral-file/ff-name-registry/internal/ledger"
	"github.com/feral-file/ff-name-registry/internal/settlement"
	"github.com/feral-file/ff-name-registry/internal/store/schema"
)

var (
	alice  = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	escrow = common.HexToAddress("0x000000000000000000000000000000000000e5c0")
)

func testTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

// twoNames returns the change set of acquiring "alpha" then seeding "beta"
func twoNames(at time.Time) ChangeSet {
	alpha := ledger.Record{
		Index:         0,
		Name:          "alpha",
		Key:           domain.KeyOf("alpha"),
		Holder:        alice,
		LastUpdatedAt: at,
		LastPrice:     big.NewInt(1000),
		PresentedURL:  "https://alpha.example",
		Prev:          ledger.NoIndex,
		Next:          1,
	}
	beta := ledger.Record{
		Index:     1,
		Name:      "beta",
		Key:       domain.KeyOf("beta"),
		LastPrice: new(big.Int),
		Prev:      0,
		Next:      ledger.NoIndex,
	}

	return ChangeSet{
		Records: []ledger.Record{alpha, beta},
		Contacts: []ledger.ContactEntry{
			{Index: 0, Key: alpha.Key, Field: domain.FieldEmail, Value: "a@example.com", UpdatedAt: at},
		},
		Grants: []ledger.GrantEntry{
			{Requester: bob, Index: 0, Key: alpha.Key, Field: domain.FieldEmail, GrantedAt: at.Add(time.Second)},
		},
		Reactions: []ledger.ReactionEntry{
			{Index: 0, Key: alpha.Key, Reaction: domain.ReactionFire, Count: 3},
		},
		History: []ledger.HistoryEntry{
			{Index: 0, Key: alpha.Key, Holder: alice, At: at},
		},
		Tokens: []identity.Token{
			{Key: alpha.Key, Holder: alice},
		},
		Balances: []settlement.Balance{
			{Address: escrow, Amount: big.NewInt(100)},
			{Address: alice, Amount: big.NewInt(0)},
		},
		Globals: &ledger.Globals{
			Acquisitions:    1,
			Reactions:       3,
			LastCreated:     1,
			LastRented:      0,
			TreasuryBalance: big.NewInt(100),
		},
	}
}

func testCommitAndLoad(t *testing.T, store Store) {
	ctx := context.Background()
	at := testTime()

	require.NoError(t, store.Commit(ctx, twoNames(at)))

	snap, err := store.LoadState(ctx)
	require.NoError(t, err)

	require.Len(t, snap.Ledger.Records, 2)
	alpha := snap.Ledger.Records[0]
	assert.Equal(t, "alpha", alpha.Name)
	assert.Equal(t, 0, alpha.Index)
	assert.Equal(t, alice, alpha.Holder)
	assert.True(t, at.Equal(alpha.LastUpdatedAt))
	assert.Equal(t, 0, alpha.LastPrice.Cmp(big.NewInt(1000)))
	assert.Equal(t, "https://alpha.example", alpha.PresentedURL)
	assert.Equal(t, ledger.NoIndex, alpha.Prev)
	assert.Equal(t, 1, alpha.Next)

	beta := snap.Ledger.Records[1]
	assert.False(t, beta.Acquired())
	assert.True(t, beta.LastUpdatedAt.IsZero())
	assert.Equal(t, 0, beta.LastPrice.Sign())
	assert.Equal(t, 0, beta.Prev)
	assert.Equal(t, ledger.NoIndex, beta.Next)

	require.Len(t, snap.Ledger.Contacts, 1)
	assert.Equal(t, "a@example.com", snap.Ledger.Contacts[0].Value)
	assert.Equal(t, domain.KeyOf("alpha"), snap.Ledger.Contacts[0].Key)

	require.Len(t, snap.Ledger.Grants, 1)
	assert.Equal(t, bob, snap.Ledger.Grants[0].Requester)
	assert.True(t, at.Add(time.Second).Equal(snap.Ledger.Grants[0].GrantedAt))

	require.Len(t, snap.Ledger.Reactions, 1)
	assert.Equal(t, uint64(3), snap.Ledger.Reactions[0].Count)

	require.Len(t, snap.Ledger.History, 1)
	assert.Equal(t, alice, snap.Ledger.History[0].Holder)

	require.Len(t, snap.Tokens, 1)
	assert.Equal(t, alice, snap.Tokens[0].Holder)

	require.Len(t, snap.Balances, 2)
	balances := map[common.Address]*big.Int{}
	for _, b := range snap.Balances {
		balances[b.Address] = b.Amount
	}
	assert.Equal(t, 0, balances[escrow].Cmp(big.NewInt(100)))
	assert.Equal(t, 0, balances[alice].Sign())

	g := snap.Ledger.Globals
	assert.Equal(t, uint64(1), g.Acquisitions)
	assert.Equal(t, uint64(3), g.Reactions)
	assert.Equal(t, uint64(0), g.Reveals)
	assert.Equal(t, 1, g.LastCreated)
	assert.Equal(t, 0, g.LastRented)
	assert.Equal(t, 0, g.TreasuryBalance.Cmp(big.NewInt(100)))

	assert.Nil(t, snap.Settings)

	// The snapshot restores into a consistent state
	state := ledger.NewState(nil)
	require.NoError(t, state.Restore(snap.Ledger))
	assert.Equal(t, []string{"alpha", "beta"}, state.Walk(true))
	rec, ok := state.Lookup("alpha")
	require.True(t, ok)
	assert.True(t, state.HasCurrentGrant(bob, rec.Index, domain.FieldEmail))
}

func testCommitUpserts(t *testing.T, store Store) {
	ctx := context.Background()
	at := testTime()
	require.NoError(t, store.Commit(ctx, twoNames(at)))

	later := at.Add(time.Hour)
	alpha := twoNames(at).Records[0]
	alpha.Holder = bob
	alpha.LastPrice = big.NewInt(2000)
	alpha.LastUpdatedAt = later

	require.NoError(t, store.Commit(ctx, ChangeSet{
		Records: []ledger.Record{alpha},
		Contacts: []ledger.ContactEntry{
			{Index: 0, Key: alpha.Key, Field: domain.FieldEmail, Value: "", UpdatedAt: later},
		},
		Reactions: []ledger.ReactionEntry{
			{Index: 0, Key: alpha.Key, Reaction: domain.ReactionFire, Count: 0},
		},
		History: []ledger.HistoryEntry{
			{Index: 0, Key: alpha.Key, Holder: bob, At: later},
		},
		Tokens: []identity.Token{
			{Key: alpha.Key, Holder: bob},
		},
		Balances: []settlement.Balance{
			{Address: alice, Amount: big.NewInt(200)},
		},
	}))

	snap, err := store.LoadState(ctx)
	require.NoError(t, err)

	require.Len(t, snap.Ledger.Records, 2)
	assert.Equal(t, bob, snap.Ledger.Records[0].Holder)
	assert.Equal(t, 0, snap.Ledger.Records[0].LastPrice.Cmp(big.NewInt(2000)))
	assert.True(t, later.Equal(snap.Ledger.Records[0].LastUpdatedAt))

	require.Len(t, snap.Ledger.Contacts, 1)
	assert.Empty(t, snap.Ledger.Contacts[0].Value)
	assert.True(t, later.Equal(snap.Ledger.Contacts[0].UpdatedAt))

	require.Len(t, snap.Ledger.Reactions, 1)
	assert.Equal(t, uint64(0), snap.Ledger.Reactions[0].Count)

	require.Len(t, snap.Ledger.History, 2)
	assert.Equal(t, alice, snap.Ledger.History[0].Holder)
	assert.Equal(t, bob, snap.Ledger.History[1].Holder)

	require.Len(t, snap.Tokens, 1)
	assert.Equal(t, bob, snap.Tokens[0].Holder)

	// Globals were not part of the second commit and keep their values
	assert.Equal(t, uint64(1), snap.Ledger.Globals.Acquisitions)
}

func testCommitIsAtomic(t *testing.T, store Store) {
	ctx := context.Background()
	at := testTime()

	// Balances are written before the outbox; the duplicate event id fails the last step
	event := domain.Event{ID: "01JNB8YV7Q4S3W1KX0A3ZC6E2C", Type: domain.EventTypeWithdrawn, At: at}
	err := store.Commit(ctx, ChangeSet{
		Balances: []settlement.Balance{
			{Address: alice, Amount: big.NewInt(1)},
		},
		Outbox: []domain.Event{event, event},
	})
	require.Error(t, err)

	snap, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Balances)

	pending, err := store.GetPendingOutboxEvents(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func testCommitEmpty(t *testing.T, store Store) {
	ctx := context.Background()
	require.NoError(t, store.Commit(ctx, ChangeSet{}))

	snap, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Ledger.Records)
	assert.Equal(t, ledger.NoIndex, snap.Ledger.Globals.LastCreated)
	assert.Equal(t, ledger.NoIndex, snap.Ledger.Globals.LastRented)
	assert.Equal(t, 0, snap.Ledger.Globals.TreasuryBalance.Sign())
}

func testSettings(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, ChangeSet{
		Settings: &Settings{Initialized: false},
	}))
	snap, err := store.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Settings)
	assert.False(t, snap.Settings.Initialized)
	assert.Nil(t, snap.Settings.BaseRentalPrice)
	assert.Zero(t, snap.Settings.PriceMultiplier)

	treasury := common.HexToAddress("0x00000000000000000000000000000000000007e5")
	require.NoError(t, store.Commit(ctx, ChangeSet{
		Settings: &Settings{
			Paused:          true,
			Initialized:     true,
			Treasury:        treasury,
			BaseRentalPrice: big.NewInt(5000),
			PriceMultiplier: 3,
			RentalPeriod:    48 * time.Hour,
		},
	}))

	snap, err = store.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Settings)
	assert.True(t, snap.Settings.Paused)
	assert.True(t, snap.Settings.Initialized)
	assert.Equal(t, treasury, snap.Settings.Treasury)
	assert.Equal(t, 0, snap.Settings.BaseRentalPrice.Cmp(big.NewInt(5000)))
	assert.Equal(t, uint64(3), snap.Settings.PriceMultiplier)
	assert.Equal(t, 48*time.Hour, snap.Settings.RentalPeriod)
}

func testOutboxLifecycle(t *testing.T, store Store) {
	ctx := context.Background()
	at := testTime()

	events := []domain.Event{
		{
			ID:   "01JNB8YV7Q4S3W1KX0A3ZC6E2D",
			Type: domain.EventTypeRented,
			Name: "alpha",
			At:   at,
			Data: map[string]any{"holder": alice.Hex(), "price": "1000"},
		},
		{
			ID:   "01JNB8YV7Q4S3W1KX0A3ZC6E2E",
			Type: domain.EventTypeHolderChanged,
			Name: "alpha",
			At:   at,
			Data: map[string]any{"holder": alice.Hex()},
		},
	}
	require.NoError(t, store.Commit(ctx, ChangeSet{Outbox: events}))

	pending, err := store.GetPendingOutboxEvents(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, events[0].ID, pending[0].EventID)
	assert.Equal(t, string(domain.EventTypeRented), pending[0].EventType)
	assert.Equal(t, schema.OutboxStatusPending, pending[0].Status)

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(pending[0].Payload, &decoded))
	assert.Equal(t, events[0].ID, decoded.ID)
	assert.Equal(t, "1000", decoded.Data["price"])

	// Limit is honored
	limited, err := store.GetPendingOutboxEvents(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, events[0].ID, limited[0].EventID)

	require.NoError(t, store.MarkOutboxEventDelivered(ctx, pending[0].ID, at))

	// Two failures keep the second event pending, the third fails it
	for i := 0; i < 2; i++ {
		require.NoError(t, store.MarkOutboxEventFailed(ctx, pending[1].ID, at, "nats unavailable", 3))
		remaining, err := store.GetPendingOutboxEvents(ctx, 10, 3)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, i+1, remaining[0].Attempts)
		assert.Equal(t, "nats unavailable", remaining[0].ErrorMessage)
	}
	require.NoError(t, store.MarkOutboxEventFailed(ctx, pending[1].ID, at, "nats unavailable", 3))

	remaining, err := store.GetPendingOutboxEvents(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.Error(t, store.MarkOutboxEventDelivered(ctx, 999_999, at))
	assert.Error(t, store.MarkOutboxEventFailed(ctx, 999_999, at, "x", 3))
}

func testNormalizeConnectionPoolSettings(t *testing.T, _ Store) {
	tests := []struct {
		name        string
		open, idle  int
		life, idleT time.Duration
		wantOpen    int
		wantIdle    int
		wantLife    time.Duration
		wantIdleT   time.Duration
	}{
		{"defaults", 0, 0, 0, 0, 20, 5, 5 * time.Minute, 10 * time.Minute},
		{"idle clamped", 4, 10, time.Minute, time.Minute, 4, 4, time.Minute, time.Minute},
		{"kept", 50, 10, time.Hour, time.Hour, 50, 10, time.Hour, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, idle, life, idleT := NormalizeConnectionPoolSettings(tt.open, tt.idle, tt.life, tt.idleT)
			assert.Equal(t, tt.wantOpen, open)
			assert.Equal(t, tt.wantIdle, idle)
			assert.Equal(t, tt.wantLife, life)
			assert.Equal(t, tt.wantIdleT, idleT)
		})
	}
}

// RunStoreTests runs the store suite against an implementation. cleanupDB may be nil.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"CommitAndLoad", testCommitAndLoad},
		{"CommitUpserts", testCommitUpserts},
		{"CommitIsAtomic", testCommitIsAtomic},
		{"CommitEmpty", testCommitEmpty},
		{"Settings", testSettings},
		{"OutboxLifecycle", testOutboxLifecycle},
		{"NormalizeConnectionPoolSettings", testNormalizeConnectionPoolSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			if cleanupDB != nil {
				defer cleanupDB(t)
			}
			tt.fn(t, store)
		})
	}
}
