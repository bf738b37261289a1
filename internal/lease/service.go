// Package lease is the registry engine. It sequences every operation, runs
// it against the journaled in-memory state and commits the result, events
// included, in one store transaction. A failed operation or commit reverts
// the in-memory state to where it was before the operation began.
package lease

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/guard"
	"github.com/feral-file/ff-name-registry/internal/identity"
	"github.com/feral-file/ff-name-registry/internal/journal"
	"github.com/feral-file/ff-name-registry/internal/ledger"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/registry"
	"github.com/feral-file/ff-name-registry/internal/settlement"
	"github.com/feral-file/ff-name-registry/internal/store"
)

// Config holds the static setup of a registry
type Config struct {
	Economics domain.Economics
	// Owner may run administrative operations
	Owner common.Address
	// Treasury receives withdrawn fees
	Treasury common.Address
	// Escrow is the vault account payments are collected into
	Escrow common.Address
	// SeedingEnabled starts a fresh registry uninitialized until FinalizeSeeding
	SeedingEnabled bool
	// LockWait bounds how long a call waits for the operation in flight.
	// Zero means guard.DefaultLockWait.
	LockWait time.Duration
}

// settingsRef identifies the administrative settings in the journal
type settingsRef struct{}

// overrides are economics changed at runtime by the owner
type overrides struct {
	baseRentalPrice *big.Int
	priceMultiplier uint64
	rentalPeriod    time.Duration
}

// Service is the registry engine
type Service struct {
	lock *guard.ReentrancyLock
	gate guard.PausableGate

	owner    guard.OwnerGuard
	escrow   common.Address
	seeding  bool
	journal  *journal.Journal
	state    *ledger.State
	book     *identity.Book
	vault    *settlement.Vault
	splitter *settlement.Splitter

	store    store.Store
	clock    adapter.Clock
	reserved registry.ReservedRegistry
	metrics  *metrics.Metrics

	// settings, journaled under settingsRef
	econ        domain.Economics
	overrides   overrides
	treasury    common.Address
	initialized bool

	// scoped to the operation in flight
	now     time.Time
	pending []domain.Event
}

// New creates a registry engine with empty state. Call Load to hydrate it from the store.
func New(cfg Config, st store.Store, clock adapter.Clock, reserved registry.ReservedRegistry, m *metrics.Metrics) (*Service, error) {
	econ := cfg.Economics.Normalize()
	if err := econ.Validate(); err != nil {
		return nil, fmt.Errorf("invalid economics: %w", err)
	}
	if domain.IsZeroAddress(cfg.Escrow) {
		return nil, fmt.Errorf("%w: escrow address is required", domain.ErrValidation)
	}
	if cfg.Escrow == cfg.Owner || cfg.Escrow == cfg.Treasury {
		return nil, fmt.Errorf("%w: escrow must be a dedicated account", domain.ErrValidation)
	}
	if reserved == nil {
		reserved = registry.NewReservedRegistry(registry.ReservedData{})
	}

	j := journal.New()
	s := &Service{
		lock:        guard.NewReentrancyLock(cfg.LockWait),
		owner:       guard.NewOwnerGuard(cfg.Owner),
		escrow:      cfg.Escrow,
		seeding:     cfg.SeedingEnabled,
		journal:     j,
		state:       ledger.NewState(j),
		book:        identity.NewBook(j),
		vault:       settlement.NewVault(j),
		store:       st,
		clock:       clock,
		reserved:    reserved,
		metrics:     m,
		econ:        econ,
		treasury:    cfg.Treasury,
		initialized: !cfg.SeedingEnabled,
	}
	s.splitter = settlement.NewSplitter(s.vault)
	s.book.OnTransfer(s.onHolderChange)

	return s, nil
}

// Load replaces the in-memory state with the persisted one. A store that was
// never written gets the initial settings persisted.
func (s *Service) Load(ctx context.Context) error {
	ctx, release, err := s.lock.Enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	snap, err := s.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry state: %w", err)
	}

	if err := s.state.Restore(snap.Ledger); err != nil {
		return fmt.Errorf("failed to restore ledger: %w", err)
	}
	s.book.Restore(snap.Tokens)
	s.vault.Restore(snap.Balances)
	s.journal.Reset()

	if snap.Settings == nil {
		if err := s.store.Commit(ctx, store.ChangeSet{Settings: s.settings()}); err != nil {
			return fmt.Errorf("failed to persist initial settings: %w", err)
		}
	} else {
		s.applySettings(*snap.Settings)
	}

	g := s.state.Globals()
	logger.InfoCtx(ctx, "Registry state loaded",
		zap.Int("names", s.state.Len()),
		zap.Uint64("acquisitions", g.Acquisitions),
		zap.Bool("initialized", s.initialized),
		zap.Bool("paused", s.gate.Paused()))

	return nil
}

// applySettings overlays persisted settings. Persisted economics overrides win over configuration.
func (s *Service) applySettings(st store.Settings) {
	s.gate.Set(st.Paused)
	s.initialized = st.Initialized
	if !domain.IsZeroAddress(st.Treasury) {
		s.treasury = st.Treasury
	}
	s.overrides = overrides{
		baseRentalPrice: st.BaseRentalPrice,
		priceMultiplier: st.PriceMultiplier,
		rentalPeriod:    st.RentalPeriod,
	}
	if st.BaseRentalPrice != nil {
		s.econ.BaseRentalPrice = new(big.Int).Set(st.BaseRentalPrice)
	}
	if st.PriceMultiplier != 0 {
		s.econ.PriceMultiplier = st.PriceMultiplier
	}
	if st.RentalPeriod != 0 {
		s.econ.RentalPeriod = st.RentalPeriod
	}
}

func (s *Service) settings() *store.Settings {
	st := &store.Settings{
		Paused:          s.gate.Paused(),
		Initialized:     s.initialized,
		Treasury:        s.treasury,
		PriceMultiplier: s.overrides.priceMultiplier,
		RentalPeriod:    s.overrides.rentalPeriod,
	}
	if s.overrides.baseRentalPrice != nil {
		st.BaseRentalPrice = new(big.Int).Set(s.overrides.baseRentalPrice)
	}
	return st
}

// touchSettings journals every administrative setting before one of them changes
func (s *Service) touchSettings() {
	econ, ov, treasury, initialized, paused := s.econ, s.overrides, s.treasury, s.initialized, s.gate.Paused()
	s.journal.Append(settingsRef{}, func() {
		s.econ, s.overrides, s.treasury, s.initialized = econ, ov, treasury, initialized
		s.gate.Set(paused)
	})
}

// opKind selects the gates an operation passes before it runs
type opKind int

const (
	// public operations are gated by pause and initialization
	public opKind = iota
	// admin operations are owner only and bypass the pause gate
	admin
)

// execute runs fn as one atomic registry operation
func (s *Service) execute(ctx context.Context, op string, kind opKind, caller common.Address, fn func(ctx context.Context, now time.Time) error) error {
	started := time.Now()
	err := s.run(ctx, kind, caller, fn)
	s.metrics.ObserveOperation(op, resultOf(err), time.Since(started))

	if err != nil && resultOf(err) == "error" {
		logger.ErrorCtx(ctx, fmt.Errorf("registry operation %s failed: %w", op, err), zap.String("caller", caller.Hex()))
	}
	return err
}

func (s *Service) run(ctx context.Context, kind opKind, caller common.Address, fn func(ctx context.Context, now time.Time) error) error {
	ctx, release, err := s.lock.Enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	switch kind {
	case admin:
		if err := s.owner.Check(caller); err != nil {
			return err
		}
	default:
		if err := s.gate.Check(); err != nil {
			return err
		}
		if !s.initialized {
			return domain.ErrNotYetInitialized
		}
		if domain.IsZeroAddress(caller) {
			return fmt.Errorf("%w: caller is required", domain.ErrValidation)
		}
	}

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	snapshot := s.journal.Snapshot()
	s.now = now
	s.pending = nil

	if err := fn(ctx, now); err != nil {
		s.rollback(snapshot)
		return err
	}

	if err := s.store.Commit(ctx, s.changeSet()); err != nil {
		s.rollback(snapshot)
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.journal.Reset()
	s.pending = nil
	return nil
}

func (s *Service) rollback(snapshot int) {
	s.journal.RevertToSnapshot(snapshot)
	s.pending = nil
}

// changeSet collects the rows touched by the operation from the journal
func (s *Service) changeSet() store.ChangeSet {
	var cs store.ChangeSet
	for _, ref := range s.journal.Dirty() {
		switch r := ref.(type) {
		case ledger.RecordRef:
			cs.Records = append(cs.Records, s.state.RecordAt(r.Index))
		case ledger.ContactRef:
			cs.Contacts = append(cs.Contacts, s.state.ContactEntryOf(r))
		case ledger.GrantRef:
			cs.Grants = append(cs.Grants, s.state.GrantEntryOf(r))
		case ledger.ReactionRef:
			cs.Reactions = append(cs.Reactions, s.state.ReactionEntryOf(r))
		case ledger.HistoryRef:
			cs.History = append(cs.History, s.state.HistoryAt(r.Position))
		case ledger.GlobalsRef:
			g := s.state.Globals()
			cs.Globals = &g
		case identity.TokenRef:
			cs.Tokens = append(cs.Tokens, s.book.Token(r.Key))
		case settlement.BalanceRef:
			cs.Balances = append(cs.Balances, s.vault.BalanceEntry(r))
		case settingsRef:
			cs.Settings = s.settings()
		}
	}
	cs.Outbox = s.pending
	return cs
}

// emit queues an event for the outbox of the operation in flight
func (s *Service) emit(eventType domain.EventType, name string, data map[string]any) {
	s.pending = append(s.pending, domain.Event{
		ID:   ulid.Make().String(),
		Type: eventType,
		Name: name,
		At:   s.now,
		Data: data,
	})
}

// readLock takes the read lock unless ctx belongs to the operation in flight
func (s *Service) readLock(ctx context.Context) (func(), error) {
	return s.lock.EnterRead(ctx)
}

// resultOf classifies an operation error for metrics
func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, domain.ErrNameNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, domain.ErrReentrantCall):
		return "reentrant"
	case errors.Is(err, domain.ErrAlreadyInitialized), errors.Is(err, domain.ErrNotYetInitialized):
		return "initialization"
	case errors.Is(err, domain.ErrPaused):
		return "paused"
	case errors.Is(err, domain.ErrPriceOverflow):
		return "overflow"
	default:
		return "error"
	}
}
