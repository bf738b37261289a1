package lease

import (
	"context"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/mocks"
	"github.com/feral-file/ff-name-registry/internal/registry"
	"github.com/feral-file/ff-name-registry/internal/store"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	treasury = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	escrow   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	dave     = common.HexToAddress("0x000000000000000000000000000000000000da7e")

	t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

const startingBalance = 1_000_000

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testEconomics() domain.Economics {
	return domain.Economics{
		BaseRentalPrice: big.NewInt(1000),
		PriceMultiplier: 2,
		RentalPeriod:    24 * time.Hour,
		URLUpdatePrice:  big.NewInt(100),
		ReactionPrices: map[domain.Reaction]*big.Int{
			domain.ReactionLike:    big.NewInt(10),
			domain.ReactionLove:    big.NewInt(20),
			domain.ReactionFire:    big.NewInt(30),
			domain.ReactionDislike: big.NewInt(40),
		},
		RevealPrices: map[domain.Field]*big.Int{
			domain.FieldTelegram: big.NewInt(50),
			domain.FieldEmail:    big.NewInt(60),
			domain.FieldPhone:    big.NewInt(70),
		},
		ContactUpdatePrices: map[domain.Field]*big.Int{
			domain.FieldTelegram: big.NewInt(5),
			domain.FieldEmail:    big.NewInt(6),
			domain.FieldPhone:    big.NewInt(7),
		},
	}
}

// harness wires a Service to a mocked store and clock
type harness struct {
	t     *testing.T
	ctx   context.Context
	svc   *Service
	store *mocks.MockStore
	clock *mocks.MockClock

	mu        sync.Mutex
	now       time.Time
	commits   []store.ChangeSet
	commitErr error
}

type harnessOption func(*Config)

func withSeeding() harnessOption {
	return func(c *Config) { c.SeedingEnabled = true }
}

func withLockWait(wait time.Duration) harnessOption {
	return func(c *Config) { c.LockWait = wait }
}

func withEconomics(econ domain.Economics) harnessOption {
	return func(c *Config) { c.Economics = econ }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	ctrl := gomock.NewController(t)
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		store: mocks.NewMockStore(ctrl),
		clock: mocks.NewMockClock(ctrl),
		now:   t0,
	}

	h.clock.EXPECT().Now().DoAndReturn(func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.now
	}).AnyTimes()
	h.store.EXPECT().Commit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, cs store.ChangeSet) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.commitErr != nil {
			return h.commitErr
		}
		h.commits = append(h.commits, cs)
		return nil
	}).AnyTimes()

	cfg := Config{
		Economics: testEconomics(),
		Owner:     owner,
		Treasury:  treasury,
		Escrow:    escrow,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reserved := registry.NewReservedRegistry(registry.ReservedData{Names: []string{"admin"}})
	svc, err := New(cfg, h.store, h.clock, reserved, nil)
	require.NoError(t, err)
	h.svc = svc

	for _, who := range []common.Address{alice, bob, carol} {
		require.NoError(t, svc.Deposit(h.ctx, owner, who, big.NewInt(startingBalance)))
	}
	return h
}

func (h *harness) at(ts time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = ts
}

func (h *harness) commitCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commits)
}

func (h *harness) lastCommit() store.ChangeSet {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(h.t, h.commits)
	return h.commits[len(h.commits)-1]
}

func (h *harness) acquire(caller common.Address, name string, payment int64) *AcquireResult {
	h.t.Helper()
	res, err := h.svc.Acquire(h.ctx, caller, AcquireRequest{Name: name}, big.NewInt(payment))
	require.NoError(h.t, err)
	return res
}

func (h *harness) stats() Stats {
	h.t.Helper()
	stats, err := h.svc.Stats(h.ctx)
	require.NoError(h.t, err)
	return stats
}

func (h *harness) exists(name string) bool {
	h.t.Helper()
	ok, err := h.svc.Exists(h.ctx, name)
	require.NoError(h.t, err)
	return ok
}

func (h *harness) balance(who common.Address) *big.Int {
	h.t.Helper()
	got, err := h.svc.BalanceOf(h.ctx, who)
	require.NoError(h.t, err)
	return got
}

// assertBalance compares with Cmp, big.Int zero values differ in representation
func (h *harness) assertBalance(who common.Address, want int64) {
	h.t.Helper()
	got := h.balance(who)
	require.Equalf(h.t, 0, got.Cmp(big.NewInt(want)), "balance of %s: got %s, want %d", who.Hex(), got, want)
}

func (h *harness) assertTreasury(want int64) {
	h.t.Helper()
	got := h.stats().TreasuryBalance
	require.Equalf(h.t, 0, got.Cmp(big.NewInt(want)), "treasury balance: got %s, want %d", got, want)
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}
