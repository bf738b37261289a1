package store

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/identity"
	"github.com/feral-file/ff-name-registry/internal/ledger"
	"github.com/feral-file/ff-name-registry/internal/settlement"
	"github.com/feral-file/ff-name-registry/internal/store/schema"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// Store defines the interface for database operations
type Store interface {
	// LoadState reads the complete registry state
	LoadState(ctx context.Context) (*Snapshot, error)
	// Commit writes the changes of one operation, including its outbox events, in a single transaction
	Commit(ctx context.Context, changes ChangeSet) error

	// GetPendingOutboxEvents retrieves pending outbox events with fewer than maxAttempts attempts, oldest first
	GetPendingOutboxEvents(ctx context.Context, limit int, maxAttempts int) ([]*schema.OutboxEvent, error)
	// MarkOutboxEventDelivered marks an outbox event as delivered
	MarkOutboxEventDelivered(ctx context.Context, id uint64, at time.Time) error
	// MarkOutboxEventFailed records a failed delivery attempt. The event is marked failed
	// once it reaches maxAttempts and stays pending otherwise.
	MarkOutboxEventFailed(ctx context.Context, id uint64, at time.Time, errMsg string, maxAttempts int) error
}

// Settings holds the administrative state persisted alongside the ledger.
// Nil or zero economics fields mean no override was ever set.
type Settings struct {
	Paused          bool
	Initialized     bool
	Treasury        common.Address
	BaseRentalPrice *big.Int
	PriceMultiplier uint64
	RentalPeriod    time.Duration
}

// Snapshot is the persisted registry state
type Snapshot struct {
	Ledger   ledger.Restoration
	Tokens   []identity.Token
	Balances []settlement.Balance
	// Settings is nil when nothing was ever committed
	Settings *Settings
}

// ChangeSet is what one operation changed
type ChangeSet struct {
	Records   []ledger.Record
	Contacts  []ledger.ContactEntry
	Grants    []ledger.GrantEntry
	Reactions []ledger.ReactionEntry
	History   []ledger.HistoryEntry
	Tokens    []identity.Token
	Balances  []settlement.Balance
	Globals   *ledger.Globals
	Settings  *Settings
	Outbox    []domain.Event
}

// Empty reports whether the change set holds nothing to write
func (c ChangeSet) Empty() bool {
	return len(c.Records) == 0 &&
		len(c.Contacts) == 0 &&
		len(c.Grants) == 0 &&
		len(c.Reactions) == 0 &&
		len(c.History) == 0 &&
		len(c.Tokens) == 0 &&
		len(c.Balances) == 0 &&
		c.Globals == nil &&
		c.Settings == nil &&
		len(c.Outbox) == 0
}
