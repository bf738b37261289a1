package lease

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/settlement"
)

func TestRejectedRebateRollsBackEverything(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Acquire(h.ctx, alice, AcquireRequest{Name: "alpha", Email: "alice@example.com"}, big.NewInt(1000))
	require.NoError(t, err)
	h.acquire(carol, "beta", 1000)
	_, err = h.svc.React(h.ctx, carol, "alpha", domain.ReactionLove, big.NewInt(20))
	require.NoError(t, err)

	h.svc.vault.OnReceive(alice, func(context.Context, common.Address, *big.Int) error {
		return errors.New("not accepting value")
	})

	before := h.commitCount()
	statsBefore := h.stats()
	aliceBefore := h.balance(alice)

	h.at(t0.Add(time.Hour))
	_, err = h.svc.Acquire(h.ctx, bob, AcquireRequest{Name: "alpha", URL: "https://bob.example"}, big.NewInt(2500))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.ErrorIs(t, err, settlement.ErrRecipientRejected)

	assert.Equal(t, before, h.commitCount())

	view, err := h.svc.Record(h.ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, alice, view.Holder)
	assert.Equal(t, 0, view.LastPrice.Cmp(big.NewInt(1000)))
	assert.True(t, t0.Equal(view.LastUpdatedAt))
	assert.Empty(t, view.PresentedURL)
	assert.Equal(t, uint64(1), view.Reactions[domain.ReactionLove])

	holder, _ := h.svc.book.HolderOf(domain.KeyOf("alpha"))
	assert.Equal(t, alice, holder)

	email, err := h.svc.ReadField(h.ctx, alice, "alpha", domain.FieldEmail)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	history, err := h.svc.HolderHistory(h.ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	statsAfter := h.stats()
	assert.Equal(t, statsBefore.Acquisitions, statsAfter.Acquisitions)
	assert.Equal(t, statsBefore.Reactions, statsAfter.Reactions)
	assert.Equal(t, statsBefore.LastRented, statsAfter.LastRented)
	assert.Equal(t, 0, statsBefore.TreasuryBalance.Cmp(statsAfter.TreasuryBalance))
	assert.Equal(t, 0, h.balance(alice).Cmp(aliceBefore))
	h.assertBalance(bob, startingBalance)
	assert.Equal(t, []string{"alpha", "beta"}, h.svc.state.Walk(true))
	assert.Equal(t, []string{"beta", "alpha"}, h.svc.state.Walk(false))
}

func TestReentrantCallFromRecipientHook(t *testing.T) {
	h := newHarness(t)
	h.acquire(alice, "alpha", 1000)

	var (
		nestedErr   error
		nestedPrice *big.Int
		nestedStats Stats
	)
	h.svc.vault.OnReceive(alice, func(ctx context.Context, _ common.Address, _ *big.Int) error {
		_, nestedErr = h.svc.Acquire(ctx, alice, AcquireRequest{Name: "beta"}, big.NewInt(1000))
		// Reads from inside the operation see the in-flight state
		nestedPrice, _ = h.svc.GetPrice(ctx, alice, "alpha")
		nestedStats, _ = h.svc.Stats(ctx)
		return nil
	})

	h.at(t0.Add(time.Hour))
	res := h.acquire(bob, "alpha", 2000)
	assert.Equal(t, 0, res.Rebate.Cmp(big.NewInt(200)))

	assert.ErrorIs(t, nestedErr, domain.ErrReentrantCall)
	require.NotNil(t, nestedPrice)
	assert.Equal(t, 0, nestedPrice.Cmp(big.NewInt(4000)))
	assert.Equal(t, uint64(2), nestedStats.Acquisitions)
	assert.False(t, h.exists("beta"))

	// The lock is released once the outer operation returns
	h.svc.vault.OnReceive(alice, nil)
	h.acquire(alice, "beta", 1000)
}

func TestRecipientHookWithDetachedContextIsRejected(t *testing.T) {
	h := newHarness(t, withLockWait(50*time.Millisecond))
	h.acquire(alice, "alpha", 1000)

	var nestedErr, readErr error
	h.svc.vault.OnReceive(alice, func(_ context.Context, _ common.Address, _ *big.Int) error {
		_, nestedErr = h.svc.Acquire(context.Background(), alice, AcquireRequest{Name: "beta"}, big.NewInt(1000))
		_, readErr = h.svc.Stats(context.Background())
		return nil
	})

	h.at(t0.Add(time.Hour))
	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Acquire(h.ctx, bob, AcquireRequest{Name: "alpha"}, big.NewInt(2000))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("outer acquire did not return")
	}

	assert.ErrorIs(t, nestedErr, domain.ErrReentrantCall)
	assert.ErrorIs(t, readErr, domain.ErrReentrantCall)
	assert.False(t, h.exists("beta"))
	assert.Equal(t, bob, h.svc.state.RecordAt(0).Holder)

	h.svc.vault.OnReceive(alice, nil)
	h.acquire(alice, "beta", 1000)
}

func TestCommitFailureRevertsState(t *testing.T) {
	h := newHarness(t)
	h.commitErr = errors.New("database unavailable")

	_, err := h.svc.Acquire(h.ctx, alice, AcquireRequest{Name: "alpha"}, big.NewInt(1000))
	require.Error(t, err)
	assert.ErrorIs(t, err, h.commitErr)

	assert.False(t, h.exists("alpha"))
	assert.Equal(t, 0, h.stats().Names)
	assert.Equal(t, uint64(0), h.stats().Acquisitions)
	assert.Equal(t, "", h.stats().LastRented)
	h.assertBalance(alice, startingBalance)
	h.assertBalance(escrow, 0)
	h.assertTreasury(0)
	assert.False(t, h.svc.book.Exists(domain.KeyOf("alpha")))

	h.commitErr = nil
	res := h.acquire(alice, "alpha", 1000)
	assert.Equal(t, 0, res.Price.Cmp(big.NewInt(1000)))

	list, err := h.svc.ListKeys(h.ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Position)
}

func TestConcurrentOperationsAreSerialized(t *testing.T) {
	h := newHarness(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.Acquire(h.ctx, carol, AcquireRequest{Name: fmt.Sprintf("name-%02d", i)}, big.NewInt(1000))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	stats := h.stats()
	assert.Equal(t, n, stats.Names)
	assert.Equal(t, uint64(n), stats.Acquisitions)
	h.assertBalance(carol, startingBalance-n*1000)
	h.assertTreasury(n * 1000)
	assert.Len(t, h.svc.state.Walk(true), n)
}
